package circle

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/types"
	nativecommon "lendnet/native/common"
)

const testAsset = "USDX"

var (
	creatorAddr  = common.BytesToAddress([]byte("circle-creator"))
	treasuryAddr = common.BytesToAddress([]byte("circle-treasury"))
)

func memberAddr(i int) common.Address {
	return common.BytesToAddress([]byte(fmt.Sprintf("circle-member-%d", i)))
}

type mockCircleState struct {
	circles        map[uint64]*Circle
	proposals      map[uint64]*Proposal
	vouches        map[string]bool
	accounts       map[common.Address]*types.Account
	nextCircle     uint64
	nextProposalID uint64
}

func newMockCircleState() *mockCircleState {
	return &mockCircleState{
		circles:   make(map[uint64]*Circle),
		proposals: make(map[uint64]*Proposal),
		vouches:   make(map[string]bool),
		accounts:  make(map[common.Address]*types.Account),
	}
}

func (m *mockCircleState) NextCircleID() (uint64, error) {
	m.nextCircle++
	return m.nextCircle, nil
}

func (m *mockCircleState) GetCircle(id uint64) (*Circle, bool, error) {
	c, ok := m.circles[id]
	return c, ok, nil
}

func (m *mockCircleState) PutCircle(c *Circle) error {
	m.circles[c.ID] = c
	return nil
}

func (m *mockCircleState) NextProposalID() (uint64, error) {
	m.nextProposalID++
	return m.nextProposalID, nil
}

func (m *mockCircleState) GetProposal(id uint64) (*Proposal, bool, error) {
	p, ok := m.proposals[id]
	return p, ok, nil
}

func (m *mockCircleState) PutProposal(p *Proposal) error {
	m.proposals[p.ID] = p
	return nil
}

func vouchKey(circleID uint64, voucher, target common.Address) string {
	return fmt.Sprintf("%d/%s/%s", circleID, voucher.Hex(), target.Hex())
}

func (m *mockCircleState) HasVouch(circleID uint64, voucher, target common.Address) (bool, error) {
	return m.vouches[vouchKey(circleID, voucher, target)], nil
}

func (m *mockCircleState) PutVouch(circleID uint64, voucher, target common.Address) error {
	m.vouches[vouchKey(circleID, voucher, target)] = true
	return nil
}

func (m *mockCircleState) GetAccount(addr common.Address) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return acc, nil
	}
	acc := types.NewAccount()
	m.accounts[addr] = acc
	return acc, nil
}

func (m *mockCircleState) PutAccount(addr common.Address, account *types.Account) error {
	m.accounts[addr] = account
	return nil
}

func (m *mockCircleState) fund(addr common.Address, asset string, amount int64) {
	acc, _ := m.GetAccount(addr)
	acc.Credit(asset, big.NewInt(amount))
}

func (m *mockCircleState) balance(addr common.Address, asset string) *big.Int {
	acc, _ := m.GetAccount(addr)
	return acc.Balance(asset)
}

type mockScores struct {
	scores map[common.Address]uint64
}

func (m *mockScores) Score(addr common.Address) (uint64, error) {
	if s, ok := m.scores[addr]; ok {
		return s, nil
	}
	return 650, nil
}

type mockOriginator struct {
	nextLoanID uint64
	requests   []uint64
	err        error
}

func (m *mockOriginator) RequestCircleLoan(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, circleID uint64) (uint64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.nextLoanID++
	m.requests = append(m.requests, circleID)
	return m.nextLoanID, nil
}

type circleFixture struct {
	engine *Engine
	state  *mockCircleState
	scores *mockScores
	loans  *mockOriginator
	now    time.Time
}

func newCircleFixture(t *testing.T) *circleFixture {
	t.Helper()
	fix := &circleFixture{
		state:  newMockCircleState(),
		scores: &mockScores{scores: make(map[common.Address]uint64)},
		loans:  &mockOriginator{},
		now:    time.Unix(1_700_000_000, 0).UTC(),
	}
	fix.engine = NewEngine(treasuryAddr)
	fix.engine.SetState(fix.state)
	fix.engine.SetCreditRegistry(fix.scores)
	fix.engine.SetLoanLedger(fix.loans)
	fix.engine.SetNowFunc(func() time.Time { return fix.now })
	return fix
}

// fiveMemberCircle creates a circle with the creator plus four joiners.
func (f *circleFixture) fiveMemberCircle(t *testing.T) *Circle {
	t.Helper()
	c, err := f.engine.CreateCircle(creatorAddr, "savings", "monthly savings circle", 5, 600)
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := f.engine.RequestToJoin(c.ID, memberAddr(i)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	c, err = f.engine.Get(c.ID)
	if err != nil {
		t.Fatalf("get circle: %v", err)
	}
	return c
}

func TestCreateCircleValidation(t *testing.T) {
	fix := newCircleFixture(t)
	if _, err := fix.engine.CreateCircle(creatorAddr, "", "", 5, 600); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty name, got %v", err)
	}
	if _, err := fix.engine.CreateCircle(creatorAddr, "tiny", "", 4, 600); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for maxMembers 4, got %v", err)
	}
	if _, err := fix.engine.CreateCircle(creatorAddr, "huge", "", 21, 600); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for maxMembers 21, got %v", err)
	}
	c, err := fix.engine.CreateCircle(creatorAddr, "savings", "", 5, 600)
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	if c.MemberCount() != 1 || !c.IsMember(creatorAddr) {
		t.Fatalf("creator not sole initial member: %+v", c.Members)
	}
	if c.Members[0].Reputation != 100 {
		t.Fatalf("initial reputation %d, want 100", c.Members[0].Reputation)
	}
}

func TestRequestToJoinGates(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)

	if err := fix.engine.RequestToJoin(c.ID, memberAddr(0)); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if err := fix.engine.RequestToJoin(c.ID, memberAddr(9)); !errors.Is(err, ErrCircleFull) {
		t.Fatalf("expected ErrCircleFull, got %v", err)
	}

	roomy, err := fix.engine.CreateCircle(creatorAddr, "open", "", 10, 700)
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	fix.scores.scores[memberAddr(9)] = 650
	if err := fix.engine.RequestToJoin(roomy.ID, memberAddr(9)); !errors.Is(err, ErrScoreBelowMinimum) {
		t.Fatalf("expected ErrScoreBelowMinimum, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)

	if err := fix.engine.RemoveMember(c.ID, memberAddr(0), memberAddr(1)); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(9)); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(1)); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	c, _ = fix.engine.Get(c.ID)
	if c.MemberCount() != 4 || c.IsMember(memberAddr(1)) {
		t.Fatalf("member not removed: %+v", c.Members)
	}
}

func TestProposalQuorum(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)

	p, err := fix.engine.ProposeLoan(c.ID, memberAddr(0), testAsset, big.NewInt(500), 90*24*60*60, "equipment")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !p.VotingDeadline.Equal(fix.now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("deadline %v, want now+7d", p.VotingDeadline)
	}

	// Two of five in favor: below the 60% quorum.
	if err := fix.engine.VoteOnProposal(p.ID, creatorAddr, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(0), true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := fix.engine.ExecuteProposal(p.ID, memberAddr(0)); !errors.Is(err, ErrProposalNotPassed) {
		t.Fatalf("expected ErrProposalNotPassed at 2/5, got %v", err)
	}

	// Third ballot reaches 3/5 = 60%.
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(1), true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	loanID, err := fix.engine.ExecuteProposal(p.ID, memberAddr(0))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if loanID != 1 {
		t.Fatalf("loan id %d, want 1", loanID)
	}
	if len(fix.loans.requests) != 1 || fix.loans.requests[0] != c.ID {
		t.Fatalf("originator not called with circle id: %v", fix.loans.requests)
	}

	stored, err := fix.engine.GetProposal(p.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if !stored.Executed || stored.LoanID != loanID {
		t.Fatalf("proposal not marked executed: %+v", stored)
	}
	if _, err := fix.engine.ExecuteProposal(p.ID, memberAddr(0)); !errors.Is(err, ErrProposalExecuted) {
		t.Fatalf("expected ErrProposalExecuted, got %v", err)
	}
}

func TestVoteRules(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)
	p, err := fix.engine.ProposeLoan(c.ID, memberAddr(0), testAsset, big.NewInt(500), 90*24*60*60, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(9), true); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(0), true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(0), false); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	fix.now = p.VotingDeadline
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(1), true); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed at deadline, got %v", err)
	}

	stored, _ := fix.engine.GetProposal(p.ID)
	if stored.VotesFor != 1 || stored.VotesAgainst != 0 {
		t.Fatalf("tally %d/%d, want 1/0", stored.VotesFor, stored.VotesAgainst)
	}
}

func TestExecuteAfterDeadlineRejected(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)
	p, err := fix.engine.ProposeLoan(c.ID, memberAddr(0), testAsset, big.NewInt(500), 90*24*60*60, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	for _, voter := range []common.Address{creatorAddr, memberAddr(0), memberAddr(1)} {
		if err := fix.engine.VoteOnProposal(p.ID, voter, true); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	fix.now = p.VotingDeadline.Add(365 * 24 * time.Hour)
	if _, err := fix.engine.ExecuteProposal(p.ID, memberAddr(0)); !errors.Is(err, ErrProposalExpired) {
		t.Fatalf("expected ErrProposalExpired past deadline, got %v", err)
	}
	stored, _ := fix.engine.GetProposal(p.ID)
	if stored.Executed || stored.LoanID != 0 {
		t.Fatalf("expired proposal mutated: %+v", stored)
	}
	if len(fix.loans.requests) != 0 {
		t.Fatalf("originator called for expired proposal")
	}
}

func TestRemovalRescindsBallots(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)
	p, err := fix.engine.ProposeLoan(c.ID, memberAddr(0), testAsset, big.NewInt(500), 90*24*60*60, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, creatorAddr, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(0), true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(1), false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(2), false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := fix.engine.ExecuteProposal(p.ID, creatorAddr); !errors.Is(err, ErrProposalNotPassed) {
		t.Fatalf("expected ErrProposalNotPassed at 2/5, got %v", err)
	}

	checkTally := func(wantFor, wantAgainst uint32) {
		t.Helper()
		stored, err := fix.engine.GetProposal(p.ID)
		if err != nil {
			t.Fatalf("get proposal: %v", err)
		}
		if stored.VotesFor != wantFor || stored.VotesAgainst != wantAgainst {
			t.Fatalf("tally %d/%d, want %d/%d", stored.VotesFor, stored.VotesAgainst, wantFor, wantAgainst)
		}
		current, _ := fix.engine.Get(c.ID)
		if stored.VotesFor+stored.VotesAgainst > current.MemberCount() {
			t.Fatalf("ballots %d exceed membership %d", stored.VotesFor+stored.VotesAgainst, current.MemberCount())
		}
	}

	// Removing one dissenter leaves 2/4 in favor: still short of 60%.
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(1)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	checkTally(2, 1)
	if _, err := fix.engine.ExecuteProposal(p.ID, creatorAddr); !errors.Is(err, ErrProposalNotPassed) {
		t.Fatalf("expected ErrProposalNotPassed at 2/4, got %v", err)
	}

	// Removing the second dissenter makes it 2/3 with no against ballots.
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(2)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	checkTally(2, 0)
	if _, err := fix.engine.ExecuteProposal(p.ID, creatorAddr); err != nil {
		t.Fatalf("execute at 2/3: %v", err)
	}
}

func TestQuorumTracksCurrentMembership(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)
	p, err := fix.engine.ProposeLoan(c.ID, memberAddr(0), testAsset, big.NewInt(500), 90*24*60*60, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, creatorAddr, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := fix.engine.VoteOnProposal(p.ID, memberAddr(0), true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := fix.engine.ExecuteProposal(p.ID, creatorAddr); !errors.Is(err, ErrProposalNotPassed) {
		t.Fatalf("expected ErrProposalNotPassed at 2/5, got %v", err)
	}
	// Removals shrink the denominator: 2/3 clears 60%.
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(2)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fix.engine.RemoveMember(c.ID, creatorAddr, memberAddr(3)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := fix.engine.ExecuteProposal(p.ID, creatorAddr); err != nil {
		t.Fatalf("execute at 2/3: %v", err)
	}
}

func TestDepositToTreasury(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)
	fix.state.fund(memberAddr(0), testAsset, 1_000)

	if err := fix.engine.DepositToTreasury(c.ID, memberAddr(9), testAsset, big.NewInt(100)); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
	if err := fix.engine.DepositToTreasury(c.ID, memberAddr(0), testAsset, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := fix.engine.DepositToTreasury(c.ID, memberAddr(0), testAsset, big.NewInt(5_000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := fix.engine.DepositToTreasury(c.ID, memberAddr(0), testAsset, big.NewInt(300)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	c, _ = fix.engine.Get(c.ID)
	if c.Treasury[testAsset].Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("treasury %s, want 300", c.Treasury[testAsset])
	}
	if got := fix.state.balance(memberAddr(0), testAsset); got.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("member balance %s, want 700", got)
	}
	if got := fix.state.balance(treasuryAddr, testAsset); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("treasury account %s, want 300", got)
	}
}

func TestVouchForMember(t *testing.T) {
	fix := newCircleFixture(t)
	c := fix.fiveMemberCircle(t)

	if err := fix.engine.VouchForMember(c.ID, memberAddr(0), memberAddr(0)); !errors.Is(err, ErrSelfVouch) {
		t.Fatalf("expected ErrSelfVouch, got %v", err)
	}
	if err := fix.engine.VouchForMember(c.ID, memberAddr(9), memberAddr(0)); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember for outside voucher, got %v", err)
	}
	if err := fix.engine.VouchForMember(c.ID, memberAddr(0), memberAddr(9)); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember for outside target, got %v", err)
	}

	if err := fix.engine.VouchForMember(c.ID, memberAddr(0), memberAddr(1)); err != nil {
		t.Fatalf("vouch: %v", err)
	}
	if err := fix.engine.VouchForMember(c.ID, memberAddr(0), memberAddr(1)); !errors.Is(err, ErrDuplicateVouch) {
		t.Fatalf("expected ErrDuplicateVouch, got %v", err)
	}

	c, _ = fix.engine.Get(c.ID)
	if got := c.member(memberAddr(0)).Reputation; got != 90 {
		t.Fatalf("voucher reputation %d, want 90", got)
	}
	if got := c.member(memberAddr(1)).Vouches; got != 1 {
		t.Fatalf("target vouches %d, want 1", got)
	}

	// Ten vouches exhaust the initial reputation.
	exhausted := newCircleFixture(t)
	big20, err := exhausted.engine.CreateCircle(creatorAddr, "wide", "", 20, 0)
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	for i := 0; i < 11; i++ {
		if err := exhausted.engine.RequestToJoin(big20.ID, memberAddr(i)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	for i := 0; i < 10; i++ {
		if err := exhausted.engine.VouchForMember(big20.ID, creatorAddr, memberAddr(i)); err != nil {
			t.Fatalf("vouch %d: %v", i, err)
		}
	}
	if err := exhausted.engine.VouchForMember(big20.ID, creatorAddr, memberAddr(10)); !errors.Is(err, ErrInsufficientReputation) {
		t.Fatalf("expected ErrInsufficientReputation, got %v", err)
	}
}

func TestCircleModulePause(t *testing.T) {
	fix := newCircleFixture(t)
	switchboard := nativecommon.NewSwitchboard()
	switchboard.SetModule("circle", true)
	fix.engine.SetPauses(switchboard)
	if _, err := fix.engine.CreateCircle(creatorAddr, "savings", "", 5, 600); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}
