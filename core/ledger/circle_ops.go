package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/state"
	"lendnet/native/circle"
)

// CreateCircle registers a lending circle with the caller as creator.
func (l *Ledger) CreateCircle(caller common.Address, name, description string, maxMembers uint32, minCreditScore uint64) (*circle.Circle, error) {
	var created *circle.Circle
	err := l.write(caller, "circle.create", "", func(e *engines, _ *state.Manager) error {
		var err error
		created, err = e.circles.CreateCircle(caller, name, description, maxMembers, minCreditScore)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RequestToJoin admits the caller to a circle.
func (l *Ledger) RequestToJoin(caller common.Address, circleID uint64) error {
	return l.write(caller, "circle.join", circleRef(circleID), func(e *engines, _ *state.Manager) error {
		return e.circles.RequestToJoin(circleID, caller)
	})
}

// RemoveMember expels a member from a circle the caller created.
func (l *Ledger) RemoveMember(caller common.Address, circleID uint64, member common.Address) error {
	return l.write(caller, "circle.remove", circleRef(circleID), func(e *engines, _ *state.Manager) error {
		return e.circles.RemoveMember(circleID, caller, member)
	})
}

// ProposeLoan opens a circle loan proposal on behalf of the caller.
func (l *Ledger) ProposeLoan(caller common.Address, circleID uint64, asset string, amount *big.Int, durationSeconds uint64, purpose string) (*circle.Proposal, error) {
	var created *circle.Proposal
	err := l.write(caller, "circle.propose", circleRef(circleID), func(e *engines, _ *state.Manager) error {
		var err error
		created, err = e.circles.ProposeLoan(circleID, caller, asset, amount, durationSeconds, purpose)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// VoteOnProposal records the caller's ballot.
func (l *Ledger) VoteOnProposal(caller common.Address, proposalID uint64, support bool) error {
	return l.write(caller, "circle.vote", proposalRef(proposalID), func(e *engines, _ *state.Manager) error {
		return e.circles.VoteOnProposal(proposalID, caller, support)
	})
}

// ExecuteProposal originates the loan for a passed proposal, returning the
// new loan id.
func (l *Ledger) ExecuteProposal(caller common.Address, proposalID uint64) (uint64, error) {
	var loanID uint64
	err := l.write(caller, "circle.execute", proposalRef(proposalID), func(e *engines, _ *state.Manager) error {
		var err error
		loanID, err = e.circles.ExecuteProposal(proposalID, caller)
		return err
	})
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// DepositToTreasury contributes the caller's tokens to the circle treasury.
func (l *Ledger) DepositToTreasury(caller common.Address, circleID uint64, asset string, amount *big.Int) error {
	return l.write(caller, "circle.treasury.deposit", circleRef(circleID), func(e *engines, _ *state.Manager) error {
		return e.circles.DepositToTreasury(circleID, caller, asset, amount)
	})
}

// VouchForMember spends the caller's circle reputation to attest for target.
func (l *Ledger) VouchForMember(caller common.Address, circleID uint64, target common.Address) error {
	return l.write(caller, "circle.vouch", circleRef(circleID), func(e *engines, _ *state.Manager) error {
		return e.circles.VouchForMember(circleID, caller, target)
	})
}

// GetCircle returns the circle record for id.
func (l *Ledger) GetCircle(id uint64) (*circle.Circle, error) {
	var out *circle.Circle
	err := l.read(func(e *engines) error {
		var err error
		out, err = e.circles.Get(id)
		return err
	})
	return out, err
}

// GetProposal returns the proposal record for id.
func (l *Ledger) GetProposal(id uint64) (*circle.Proposal, error) {
	var out *circle.Proposal
	err := l.read(func(e *engines) error {
		var err error
		out, err = e.circles.GetProposal(id)
		return err
	})
	return out, err
}

func circleRef(id uint64) string   { return fmt.Sprintf("circle/%d", id) }
func proposalRef(id uint64) string { return fmt.Sprintf("proposal/%d", id) }
