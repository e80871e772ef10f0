package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeCircleCreated is emitted when a circle is registered.
	TypeCircleCreated = "circle.created"
	// TypeCircleJoined is emitted when a member is admitted.
	TypeCircleJoined = "circle.joined"
	// TypeCircleMemberRemoved is emitted when the creator removes a member.
	TypeCircleMemberRemoved = "circle.member.removed"
	// TypeCircleProposed is emitted when a member proposes a circle loan.
	TypeCircleProposed = "circle.proposed"
	// TypeCircleVote is emitted for every recorded ballot.
	TypeCircleVote = "circle.vote"
	// TypeCircleExecuted is emitted when a passed proposal originates a loan.
	TypeCircleExecuted = "circle.executed"
	// TypeCircleTreasuryDeposit is emitted when a member funds the treasury.
	TypeCircleTreasuryDeposit = "circle.treasury.deposit"
	// TypeCircleVouch is emitted when one member vouches for another.
	TypeCircleVouch = "circle.vouch"
)

// CircleCreated captures the configuration of a new circle.
type CircleCreated struct {
	ID             uint64
	Creator        common.Address
	MaxMembers     uint32
	MinCreditScore uint64
}

func (CircleCreated) EventType() string { return TypeCircleCreated }

// CircleJoined records a successful membership admission.
type CircleJoined struct {
	CircleID uint64
	Member   common.Address
}

func (CircleJoined) EventType() string { return TypeCircleJoined }

// CircleMemberRemoved records a creator-initiated removal.
type CircleMemberRemoved struct {
	CircleID uint64
	Member   common.Address
}

func (CircleMemberRemoved) EventType() string { return TypeCircleMemberRemoved }

// CircleProposed captures a loan proposal entering its voting window.
type CircleProposed struct {
	ProposalID uint64
	CircleID   uint64
	Proposer   common.Address
	Asset      string
	Amount     *big.Int
}

func (CircleProposed) EventType() string { return TypeCircleProposed }

// CircleVote records a single ballot.
type CircleVote struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool
}

func (CircleVote) EventType() string { return TypeCircleVote }

// CircleExecuted links a passed proposal to the loan it originated.
type CircleExecuted struct {
	ProposalID uint64
	CircleID   uint64
	LoanID     uint64
}

func (CircleExecuted) EventType() string { return TypeCircleExecuted }

// CircleTreasuryDeposit records a member treasury contribution.
type CircleTreasuryDeposit struct {
	CircleID uint64
	Member   common.Address
	Asset    string
	Amount   *big.Int
}

func (CircleTreasuryDeposit) EventType() string { return TypeCircleTreasuryDeposit }

// CircleVouch records a reputation-costing attestation between members.
type CircleVouch struct {
	CircleID uint64
	Voucher  common.Address
	Target   common.Address
}

func (CircleVouch) EventType() string { return TypeCircleVouch }
