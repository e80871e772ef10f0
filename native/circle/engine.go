package circle

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/events"
	"lendnet/core/types"
	nativecommon "lendnet/native/common"
)

var (
	errNilState = errors.New("circle engine: state not configured")
	// ErrCircleNotFound is returned for unknown circle ids.
	ErrCircleNotFound = errors.New("circle engine: circle not found")
	// ErrProposalNotFound is returned for unknown proposal ids.
	ErrProposalNotFound = errors.New("circle engine: proposal not found")
	// ErrInvalidConfig rejects circle parameters outside the permitted range.
	ErrInvalidConfig = errors.New("circle engine: invalid circle configuration")
	// ErrNotAMember gates member-only operations.
	ErrNotAMember = errors.New("circle engine: caller is not a member")
	// ErrAlreadyMember rejects duplicate admissions.
	ErrAlreadyMember = errors.New("circle engine: already a member")
	// ErrCircleFull rejects admission when the circle is at capacity.
	ErrCircleFull = errors.New("circle engine: circle is full")
	// ErrScoreBelowMinimum rejects joiners under the circle's score gate.
	ErrScoreBelowMinimum = errors.New("circle engine: credit score below circle minimum")
	// ErrNotCreator gates creator-only operations.
	ErrNotCreator = errors.New("circle engine: only the creator may do that")
	// ErrDuplicateVote rejects a second ballot from the same voter.
	ErrDuplicateVote = errors.New("circle engine: already voted")
	// ErrVotingClosed rejects ballots after the voting deadline.
	ErrVotingClosed = errors.New("circle engine: voting window closed")
	// ErrProposalNotPassed rejects execution before quorum is reached.
	ErrProposalNotPassed = errors.New("circle engine: proposal has not passed")
	// ErrProposalExpired is returned when executing after the voting window.
	ErrProposalExpired = errors.New("circle engine: voting window expired before execution")
	// ErrProposalExecuted rejects double execution.
	ErrProposalExecuted = errors.New("circle engine: proposal already executed")
	// ErrSelfVouch rejects vouching for oneself.
	ErrSelfVouch = errors.New("circle engine: cannot vouch for self")
	// ErrDuplicateVouch rejects repeat vouches for the same target.
	ErrDuplicateVouch = errors.New("circle engine: already vouched for member")
	// ErrInsufficientReputation rejects vouches the caller cannot afford.
	ErrInsufficientReputation = errors.New("circle engine: insufficient reputation")
	// ErrInvalidAmount rejects non-positive treasury deposits.
	ErrInvalidAmount = errors.New("circle engine: amount must be positive")
	// ErrInsufficientBalance is returned when the caller cannot fund the call.
	ErrInsufficientBalance = errors.New("circle engine: insufficient balance")
)

const (
	moduleName = "circle"

	minCircleSize = 5
	maxCircleSize = 20

	// initialReputation seeds every new member's circle-local standing.
	initialReputation = 100
	// vouchCost is debited from the voucher's reputation per vouch.
	vouchCost = 10

	// quorumBps is the votesFor/memberCount passing threshold.
	quorumBps = 6_000
	// votingWindow bounds how long a proposal accepts ballots.
	votingWindow = 7 * 24 * time.Hour
)

type engineState interface {
	NextCircleID() (uint64, error)
	GetCircle(id uint64) (*Circle, bool, error)
	PutCircle(c *Circle) error
	NextProposalID() (uint64, error)
	GetProposal(id uint64) (*Proposal, bool, error)
	PutProposal(p *Proposal) error
	HasVouch(circleID uint64, voucher, target common.Address) (bool, error)
	PutVouch(circleID uint64, voucher, target common.Address) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
}

type creditScorer interface {
	Score(addr common.Address) (uint64, error)
}

// loanOriginator is the slice of the loan ledger used to turn a passed
// proposal into a loan.
type loanOriginator interface {
	RequestCircleLoan(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, circleID uint64) (uint64, error)
}

// Engine owns circle governance: membership, treasury, vouching, and the
// proposal/vote/execute pipeline that originates circle loans.
type Engine struct {
	state           engineState
	credit          creditScorer
	loans           loanOriginator
	treasuryAddress common.Address
	pauses          nativecommon.PauseView
	emitter         events.Emitter
	nowFn           func() time.Time
}

// NewEngine constructs a circle engine holding treasuries at treasuryAddr.
func NewEngine(treasuryAddr common.Address) *Engine {
	return &Engine{
		treasuryAddress: treasuryAddr,
		emitter:         events.NoopEmitter{},
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCreditRegistry wires the score source used for the join gate.
func (e *Engine) SetCreditRegistry(c creditScorer) { e.credit = c }

// SetLoanLedger wires the originator used by ExecuteProposal.
func (e *Engine) SetLoanLedger(l loanOriginator) { e.loans = l }

// SetPauses wires the pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock. Nil restores the UTC wall clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time { return e.nowFn() }

// CreateCircle registers a circle with the caller as its sole initial
// member.
func (e *Engine) CreateCircle(creator common.Address, name, description string, maxMembers uint32, minCreditScore uint64) (*Circle, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidConfig
	}
	if maxMembers < minCircleSize || maxMembers > maxCircleSize {
		return nil, ErrInvalidConfig
	}

	id, err := e.state.NextCircleID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	c := &Circle{
		ID:             id,
		Name:           strings.TrimSpace(name),
		Description:    strings.TrimSpace(description),
		Creator:        creator,
		MaxMembers:     maxMembers,
		MinCreditScore: minCreditScore,
		Members: []Member{{
			Address:    creator,
			Reputation: initialReputation,
			JoinedAt:   now,
		}},
		Treasury:  make(map[string]*big.Int),
		CreatedAt: now,
	}
	if err := e.state.PutCircle(c); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CircleCreated{ID: id, Creator: creator, MaxMembers: maxMembers, MinCreditScore: minCreditScore})
	return c, nil
}

// RequestToJoin admits the caller when the circle has room and the caller
// clears its score gate.
func (e *Engine) RequestToJoin(circleID uint64, caller common.Address) error {
	c, err := e.loadCircle(circleID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if c.IsMember(caller) {
		return ErrAlreadyMember
	}
	if c.MemberCount() >= c.MaxMembers {
		return ErrCircleFull
	}
	score, err := e.credit.Score(caller)
	if err != nil {
		return err
	}
	if score < c.MinCreditScore {
		return ErrScoreBelowMinimum
	}

	c.Members = append(c.Members, Member{
		Address:    caller,
		Reputation: initialReputation,
		JoinedAt:   e.now(),
	})
	if err := e.state.PutCircle(c); err != nil {
		return err
	}
	e.emitter.Emit(events.CircleJoined{CircleID: circleID, Member: caller})
	return nil
}

// RemoveMember expels a member. Creator-only; the creator cannot remove
// themselves.
func (e *Engine) RemoveMember(circleID uint64, caller, member common.Address) error {
	c, err := e.loadCircle(circleID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != c.Creator {
		return ErrNotCreator
	}
	if member == c.Creator {
		return ErrNotCreator
	}
	idx := -1
	for i := range c.Members {
		if c.Members[i].Address == member {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotAMember
	}
	c.Members = append(c.Members[:idx], c.Members[idx+1:]...)
	if err := e.state.PutCircle(c); err != nil {
		return err
	}
	// Departing ballots no longer count. Roll them back on every proposal
	// that has not executed so tallies never exceed the membership.
	for _, pid := range c.Proposals {
		p, err := e.loadProposal(pid)
		if err != nil {
			return err
		}
		if p.Executed || !p.rescindBallot(member) {
			continue
		}
		if err := e.state.PutProposal(p); err != nil {
			return err
		}
	}
	e.emitter.Emit(events.CircleMemberRemoved{CircleID: circleID, Member: member})
	return nil
}

// ProposeLoan opens a voting window for a circle loan on behalf of the
// proposer.
func (e *Engine) ProposeLoan(circleID uint64, proposer common.Address, asset string, amount *big.Int, durationSeconds uint64, purpose string) (*Proposal, error) {
	c, err := e.loadCircle(circleID)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !c.IsMember(proposer) {
		return nil, ErrNotAMember
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	id, err := e.state.NextProposalID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	p := &Proposal{
		ID:              id,
		CircleID:        circleID,
		Proposer:        proposer,
		Asset:           asset,
		Amount:          new(big.Int).Set(amount),
		DurationSeconds: durationSeconds,
		Purpose:         strings.TrimSpace(purpose),
		VotingDeadline:  now.Add(votingWindow),
		CreatedAt:       now,
	}
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	c.Proposals = append(c.Proposals, id)
	if err := e.state.PutCircle(c); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CircleProposed{ProposalID: id, CircleID: circleID, Proposer: proposer, Asset: asset, Amount: new(big.Int).Set(amount)})
	return p, nil
}

// VoteOnProposal records a one-time ballot. Votes cannot be changed and are
// only accepted before the deadline.
func (e *Engine) VoteOnProposal(proposalID uint64, voter common.Address, support bool) error {
	p, err := e.loadProposal(proposalID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	c, err := e.loadCircle(p.CircleID)
	if err != nil {
		return err
	}
	if !c.IsMember(voter) {
		return ErrNotAMember
	}
	if p.Executed {
		return ErrProposalExecuted
	}
	if !e.now().Before(p.VotingDeadline) {
		return ErrVotingClosed
	}
	if p.hasVoted(voter) {
		return ErrDuplicateVote
	}

	if support {
		p.VotesFor++
	} else {
		p.VotesAgainst++
	}
	p.Ballots = append(p.Ballots, Ballot{Voter: voter, Support: support})
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.emitter.Emit(events.CircleVote{ProposalID: proposalID, Voter: voter, Support: support})
	return nil
}

// ExecuteProposal originates the loan for a passed proposal. Execution is an
// explicit member action, one-time, and must land before the voting window
// expires.
func (e *Engine) ExecuteProposal(proposalID uint64, caller common.Address) (uint64, error) {
	p, err := e.loadProposal(proposalID)
	if err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	c, err := e.loadCircle(p.CircleID)
	if err != nil {
		return 0, err
	}
	if !c.IsMember(caller) {
		return 0, ErrNotAMember
	}
	if p.Executed {
		return 0, ErrProposalExecuted
	}
	if !e.now().Before(p.VotingDeadline) {
		return 0, ErrProposalExpired
	}
	if !p.Passed(c.MemberCount(), quorumBps) {
		return 0, ErrProposalNotPassed
	}

	loanID, err := e.loans.RequestCircleLoan(p.Proposer, p.Asset, p.Amount, p.DurationSeconds, p.CircleID)
	if err != nil {
		return 0, err
	}
	p.Executed = true
	p.LoanID = loanID
	if err := e.state.PutProposal(p); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.CircleExecuted{ProposalID: proposalID, CircleID: p.CircleID, LoanID: loanID})
	return loanID, nil
}

// DepositToTreasury pulls tokens from a member into the circle treasury.
func (e *Engine) DepositToTreasury(circleID uint64, member common.Address, asset string, amount *big.Int) error {
	c, err := e.loadCircle(circleID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !c.IsMember(member) {
		return ErrNotAMember
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	memberAcc, err := e.loadAccount(member)
	if err != nil {
		return err
	}
	if memberAcc.Balance(asset).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	total := c.Treasury[asset]
	if total == nil {
		total = big.NewInt(0)
	}
	c.Treasury[asset] = new(big.Int).Add(total, amount)
	if err := e.state.PutCircle(c); err != nil {
		return err
	}

	if !memberAcc.Debit(asset, amount) {
		return ErrInsufficientBalance
	}
	treasuryAcc, err := e.loadAccount(e.treasuryAddress)
	if err != nil {
		return err
	}
	treasuryAcc.Credit(asset, amount)
	if err := e.state.PutAccount(member, memberAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.treasuryAddress, treasuryAcc); err != nil {
		return err
	}

	e.emitter.Emit(events.CircleTreasuryDeposit{CircleID: circleID, Member: member, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// VouchForMember spends the caller's reputation to attest for another
// member. One vouch per voucher/target pair per circle.
func (e *Engine) VouchForMember(circleID uint64, voucher, target common.Address) error {
	c, err := e.loadCircle(circleID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if voucher == target {
		return ErrSelfVouch
	}
	from := c.member(voucher)
	if from == nil {
		return ErrNotAMember
	}
	to := c.member(target)
	if to == nil {
		return ErrNotAMember
	}
	seen, err := e.state.HasVouch(circleID, voucher, target)
	if err != nil {
		return err
	}
	if seen {
		return ErrDuplicateVouch
	}
	if from.Reputation < vouchCost {
		return ErrInsufficientReputation
	}

	from.Reputation -= vouchCost
	to.Vouches++
	if err := e.state.PutVouch(circleID, voucher, target); err != nil {
		return err
	}
	if err := e.state.PutCircle(c); err != nil {
		return err
	}
	e.emitter.Emit(events.CircleVouch{CircleID: circleID, Voucher: voucher, Target: target})
	return nil
}

// Get returns the circle record for id.
func (e *Engine) Get(id uint64) (*Circle, error) {
	return e.loadCircle(id)
}

// GetProposal returns the proposal record for id.
func (e *Engine) GetProposal(id uint64) (*Proposal, error) {
	return e.loadProposal(id)
}

func (e *Engine) loadCircle(id uint64) (*Circle, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	c, ok, err := e.state.GetCircle(id)
	if err != nil {
		return nil, err
	}
	if !ok || c == nil {
		return nil, ErrCircleNotFound
	}
	c.normalize()
	return c, nil
}

func (e *Engine) loadProposal(id uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, ok, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return nil, ErrProposalNotFound
	}
	p.normalize()
	return p, nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	return acc, nil
}
