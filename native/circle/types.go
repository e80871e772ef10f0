package circle

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Member is a circle membership record. Reputation is the circle-local
// standing spent on vouches; it is independent of the platform credit score.
type Member struct {
	Address    common.Address `json:"address"`
	Reputation uint64         `json:"reputation"`
	Vouches    uint32         `json:"vouches"`
	JoinedAt   time.Time      `json:"joinedAt"`
}

// Circle is a lending circle: a bounded member set with a shared treasury
// and loan-proposal governance. Circles are created once and never deleted.
type Circle struct {
	ID             uint64         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Creator        common.Address `json:"creator"`
	MaxMembers     uint32         `json:"maxMembers"`
	MinCreditScore uint64         `json:"minCreditScore"`
	Members        []Member       `json:"members"`
	// Treasury tracks pooled contributions per asset. The balances live in
	// the circle module account.
	Treasury map[string]*big.Int `json:"treasury,omitempty"`
	// Proposals indexes every proposal raised in this circle so membership
	// changes can touch their ballots.
	Proposals []uint64  `json:"proposals,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Circle) normalize() {
	if c.Treasury == nil {
		c.Treasury = make(map[string]*big.Int)
	}
}

// MemberCount is the current membership size.
func (c *Circle) MemberCount() uint32 { return uint32(len(c.Members)) }

func (c *Circle) member(addr common.Address) *Member {
	for i := range c.Members {
		if c.Members[i].Address == addr {
			return &c.Members[i]
		}
	}
	return nil
}

// IsMember reports whether addr currently belongs to the circle.
func (c *Circle) IsMember(addr common.Address) bool { return c.member(addr) != nil }

// Ballot records a member's vote on a proposal. Ballots are rescinded when
// the voter leaves the circle before execution.
type Ballot struct {
	Voter   common.Address `json:"voter"`
	Support bool           `json:"support"`
}

// Proposal is a circle loan proposal under vote. Each member casts at most
// one ballot; tallies always equal the surviving ballots.
type Proposal struct {
	ID              uint64         `json:"id"`
	CircleID        uint64         `json:"circleId"`
	Proposer        common.Address `json:"proposer"`
	Asset           string         `json:"asset"`
	Amount          *big.Int       `json:"amount"`
	DurationSeconds uint64         `json:"durationSeconds"`
	Purpose         string         `json:"purpose,omitempty"`
	VotesFor        uint32         `json:"votesFor"`
	VotesAgainst    uint32         `json:"votesAgainst"`
	Ballots         []Ballot       `json:"ballots,omitempty"`
	VotingDeadline  time.Time      `json:"votingDeadline"`
	Executed        bool           `json:"executed"`
	// LoanID is set when a passed proposal is executed.
	LoanID    uint64    `json:"loanId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Proposal) normalize() {
	if p.Amount == nil {
		p.Amount = big.NewInt(0)
	}
}

func (p *Proposal) hasVoted(addr common.Address) bool {
	for _, b := range p.Ballots {
		if b.Voter == addr {
			return true
		}
	}
	return false
}

// rescindBallot drops addr's ballot and rolls its tally back. It reports
// whether a ballot was removed.
func (p *Proposal) rescindBallot(addr common.Address) bool {
	for i, b := range p.Ballots {
		if b.Voter != addr {
			continue
		}
		if b.Support {
			p.VotesFor--
		} else {
			p.VotesAgainst--
		}
		p.Ballots = append(p.Ballots[:i], p.Ballots[i+1:]...)
		return true
	}
	return false
}

// Passed applies the quorum rule against the circle's current membership:
// votesFor / memberCount >= quorum.
func (p *Proposal) Passed(memberCount uint32, quorumBps uint64) bool {
	if memberCount == 0 {
		return false
	}
	return uint64(p.VotesFor)*10_000 >= uint64(memberCount)*quorumBps
}
