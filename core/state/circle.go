package state

import (
	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/circle"
)

// NextCircleID allocates the next circle id.
func (m *Manager) NextCircleID() (uint64, error) {
	return m.nextID(circleNextIDKey)
}

// GetCircle loads the circle record for id.
func (m *Manager) GetCircle(id uint64) (*circle.Circle, bool, error) {
	c := new(circle.Circle)
	ok, err := m.getJSON(circleKey(id), c)
	if err != nil || !ok {
		return nil, false, err
	}
	return c, true, nil
}

// PutCircle persists a circle record.
func (m *Manager) PutCircle(c *circle.Circle) error {
	return m.putJSON(circleKey(c.ID), c)
}

// NextProposalID allocates the next proposal id.
func (m *Manager) NextProposalID() (uint64, error) {
	return m.nextID(proposalNextIDKey)
}

// GetProposal loads the proposal record for id.
func (m *Manager) GetProposal(id uint64) (*circle.Proposal, bool, error) {
	p := new(circle.Proposal)
	ok, err := m.getJSON(proposalKey(id), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// PutProposal persists a proposal record.
func (m *Manager) PutProposal(p *circle.Proposal) error {
	return m.putJSON(proposalKey(p.ID), p)
}

// HasVouch reports whether voucher has already vouched for target within the
// circle.
func (m *Manager) HasVouch(circleID uint64, voucher, target common.Address) (bool, error) {
	return m.db.Has(vouchKey(circleID, voucher, target))
}

// PutVouch records a voucher/target attestation for the circle.
func (m *Manager) PutVouch(circleID uint64, voucher, target common.Address) error {
	return m.db.Put(vouchKey(circleID, voucher, target), []byte{1})
}
