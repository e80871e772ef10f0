package state

import (
	"github.com/ethereum/go-ethereum/common"
)

type creditRecord struct {
	Score uint64 `json:"score"`
}

// GetCreditScore loads the stored score for addr.
func (m *Manager) GetCreditScore(addr common.Address) (uint64, bool, error) {
	var rec creditRecord
	ok, err := m.getJSON(creditScoreKey(addr), &rec)
	if err != nil || !ok {
		return 0, false, err
	}
	return rec.Score, true, nil
}

// PutCreditScore persists the score for addr.
func (m *Manager) PutCreditScore(addr common.Address, score uint64) error {
	return m.putJSON(creditScoreKey(addr), creditRecord{Score: score})
}
