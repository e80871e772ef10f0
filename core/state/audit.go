package state

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AuditRecord is one entry in the append-only operation trail written by the
// ledger facade.
type AuditRecord struct {
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     common.Address `json:"actor"`
	Action    string         `json:"action"`
	// Reference names the affected entity, e.g. "loan/3" or "pool/USDX".
	Reference string `json:"reference,omitempty"`
}

// AppendAudit stores a record with the next sequence number.
func (m *Manager) AppendAudit(actor common.Address, action, reference string, at time.Time) error {
	seq, err := m.nextID(auditNextSeqKey)
	if err != nil {
		return err
	}
	return m.putJSON(auditKey(seq), AuditRecord{
		Seq:       seq,
		Timestamp: at,
		Actor:     actor,
		Action:    action,
		Reference: reference,
	})
}

// AuditRange returns records with sequence numbers in [from, from+limit),
// skipping gaps. Sequence numbers start at 1.
func (m *Manager) AuditRange(from uint64, limit int) ([]AuditRecord, error) {
	if from == 0 {
		from = 1
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	out := make([]AuditRecord, 0, limit)
	for seq := from; len(out) < limit; seq++ {
		var rec AuditRecord
		ok, err := m.getJSON(auditKey(seq), &rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}
