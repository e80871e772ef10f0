package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "lendnet/native/common"
	"lendnet/native/loan"
	"lendnet/storage"
)

const testAsset = "USDX"

var (
	adminAddr    = common.BytesToAddress([]byte("ledger-admin"))
	lenderAddr   = common.BytesToAddress([]byte("ledger-lender"))
	borrowerAddr = common.BytesToAddress([]byte("ledger-borrower"))
)

type ledgerFixture struct {
	ledger *Ledger
	now    time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	fix := &ledgerFixture{now: time.Unix(1_700_000_000, 0).UTC()}
	l, err := New(storage.NewMemDB(), Options{
		GenesisAdmin: adminAddr,
		NowFunc:      func() time.Time { return fix.now },
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	fix.ledger = l

	for _, role := range []string{"APPROVER", "LOAN_OPERATOR", "REGISTRAR"} {
		if err := l.GrantRole(adminAddr, role, adminAddr); err != nil {
			t.Fatalf("grant %s: %v", role, err)
		}
	}
	if err := l.WhitelistAsset(adminAddr, testAsset, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := l.CreatePool(adminAddr, testAsset); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := l.Mint(adminAddr, lenderAddr, testAsset, big.NewInt(10_000)); err != nil {
		t.Fatalf("mint lender: %v", err)
	}
	if _, err := l.Deposit(lenderAddr, testAsset, big.NewInt(10_000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	return fix
}

func (f *ledgerFixture) activeLoan(t *testing.T, amount int64) *loan.Loan {
	t.Helper()
	created, err := f.ledger.RequestLoan(borrowerAddr, testAsset, big.NewInt(amount), 90*24*60*60, loan.FrequencyMonthly)
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}
	if err := f.ledger.ApproveLoan(adminAddr, created.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.ledger.DisburseLoan(adminAddr, created.ID); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	active, err := f.ledger.GetLoan(created.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	return active
}

func TestLoanLifecycleEndToEnd(t *testing.T) {
	fix := newLedgerFixture(t)
	if err := fix.ledger.Mint(adminAddr, borrowerAddr, testAsset, big.NewInt(200)); err != nil {
		t.Fatalf("mint borrower: %v", err)
	}
	l := fix.activeLoan(t, 500)

	if l.Status != loan.StatusActive {
		t.Fatalf("expected active, got %v", l.Status)
	}
	bal, _ := fix.ledger.Balance(borrowerAddr, testAsset)
	if bal.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("borrower balance %s, want 700", bal)
	}
	p, err := fix.ledger.PoolState(testAsset)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	if p.TotalBorrowed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("total borrowed %s, want 500", p.TotalBorrowed)
	}

	for i := uint32(0); i < l.TotalInstallments; i++ {
		fix.now = l.NextPaymentDue.Add(time.Duration(i) * l.Frequency.Period())
		if err := fix.ledger.MakePayment(borrowerAddr, l.ID, l.InstallmentAmount); err != nil {
			t.Fatalf("payment %d: %v", i+1, err)
		}
	}
	final, _ := fix.ledger.GetLoan(l.ID)
	if final.Status != loan.StatusCompleted {
		t.Fatalf("expected completed, got %v", final.Status)
	}

	// Completion bumps the borrower's score from the seeded default.
	score, err := fix.ledger.CreditScore(borrowerAddr)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 675 {
		t.Fatalf("score %d, want 675", score)
	}

	// Pool conservation: principal restored, interest split between lender
	// accrual and reserves.
	p, _ = fix.ledger.PoolState(testAsset)
	if p.TotalBorrowed.Sign() != 0 {
		t.Fatalf("total borrowed %s after payoff", p.TotalBorrowed)
	}
	interest := new(big.Int).Sub(final.TotalDue, final.Principal)
	lenderSide := new(big.Int).Add(p.AccumulatedInterest, p.TotalReserves)
	if lenderSide.Cmp(interest) != 0 {
		t.Fatalf("interest %s split into %s", interest, lenderSide)
	}

	// The active-loan index is empty again.
	active, err := fix.ledger.ActiveLoans(0, 10)
	if err != nil || len(active) != 0 {
		t.Fatalf("active loans %v (%v), want none", active, err)
	}
}

func TestPaymentByNonBorrowerRejected(t *testing.T) {
	fix := newLedgerFixture(t)
	l := fix.activeLoan(t, 500)
	err := fix.ledger.MakePayment(lenderAddr, l.ID, l.InstallmentAmount)
	if !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRoleEnforcement(t *testing.T) {
	fix := newLedgerFixture(t)
	created, err := fix.ledger.RequestLoan(borrowerAddr, testAsset, big.NewInt(500), 90*24*60*60, loan.FrequencyMonthly)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := fix.ledger.ApproveLoan(borrowerAddr, created.ID); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-approver, got %v", err)
	}
	if err := fix.ledger.WhitelistAsset(borrowerAddr, "GOLD", true); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if err := fix.ledger.SetCreditScore(borrowerAddr, borrowerAddr, 900); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-registrar, got %v", err)
	}
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	fix := newLedgerFixture(t)
	l := fix.activeLoan(t, 500)

	// A full payoff exceeds the borrower's balance (they only hold the
	// disbursed principal), so the payment is rejected and nothing commits.
	before, _ := fix.ledger.GetLoan(l.ID)
	err := fix.ledger.MakePayment(borrowerAddr, l.ID, before.TotalDue)
	if err == nil {
		t.Fatal("expected payoff to fail on balance")
	}
	after, _ := fix.ledger.GetLoan(l.ID)
	if after.AmountPaid.Cmp(before.AmountPaid) != 0 || after.PaidInstallments != before.PaidInstallments {
		t.Fatalf("failed payment mutated loan: %+v", after)
	}
	p, _ := fix.ledger.PoolState(testAsset)
	if p.TotalBorrowed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("failed payment mutated pool: %s", p.TotalBorrowed)
	}
}

func TestGlobalPauseBlocksOperations(t *testing.T) {
	fix := newLedgerFixture(t)
	if err := fix.ledger.SetGlobalPause(adminAddr, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err := fix.ledger.RequestLoan(borrowerAddr, testAsset, big.NewInt(500), 90*24*60*60, loan.FrequencyMonthly)
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if _, err := fix.ledger.Deposit(lenderAddr, testAsset, big.NewInt(100)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused for deposit, got %v", err)
	}
	// Unpause always works.
	if err := fix.ledger.SetGlobalPause(adminAddr, false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := fix.ledger.Deposit(lenderAddr, testAsset, big.NewInt(0)); err == nil {
		t.Fatal("expected amount validation after unpause")
	}
}

func TestCircleProposalOriginatesLoan(t *testing.T) {
	fix := newLedgerFixture(t)
	members := make([]common.Address, 0, 4)
	for i := 0; i < 4; i++ {
		members = append(members, common.BytesToAddress([]byte{0x70, byte(i)}))
	}

	c, err := fix.ledger.CreateCircle(borrowerAddr, "savings", "", 5, 600)
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	for _, m := range members {
		if err := fix.ledger.RequestToJoin(m, c.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	p, err := fix.ledger.ProposeLoan(borrowerAddr, c.ID, testAsset, big.NewInt(500), 90*24*60*60, "seed stock")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	for _, voter := range []common.Address{borrowerAddr, members[0], members[1]} {
		if err := fix.ledger.VoteOnProposal(voter, p.ID, true); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	loanID, err := fix.ledger.ExecuteProposal(borrowerAddr, p.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	created, err := fix.ledger.GetLoan(loanID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if created.CircleID != c.ID {
		t.Fatalf("loan circle id %d, want %d", created.CircleID, c.ID)
	}
	if created.Borrower != borrowerAddr {
		t.Fatalf("loan borrower %s, want proposer", created.Borrower.Hex())
	}
}

func TestAuditTrailRecordsOperations(t *testing.T) {
	fix := newLedgerFixture(t)
	recs, err := fix.ledger.AuditRange(1, 100)
	if err != nil {
		t.Fatalf("audit range: %v", err)
	}
	// Fixture setup alone writes whitelist, pool create, mint, deposit and
	// the role grants.
	if len(recs) < 5 {
		t.Fatalf("expected setup audit records, got %d", len(recs))
	}
	found := false
	for _, rec := range recs {
		if rec.Action == "pool.deposit" && rec.Actor == lenderAddr {
			found = true
		}
	}
	if !found {
		t.Fatal("deposit not in audit trail")
	}
}

func TestRolesSurviveRestart(t *testing.T) {
	db := storage.NewMemDB()
	l, err := New(db, Options{GenesisAdmin: adminAddr})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := l.GrantRole(adminAddr, "APPROVER", lenderAddr); err != nil {
		t.Fatalf("grant: %v", err)
	}

	reopened, err := New(db, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := reopened.WhitelistAsset(adminAddr, testAsset, true); err != nil {
		t.Fatalf("admin grant not persisted: %v", err)
	}
	if err := reopened.CreatePool(adminAddr, testAsset); err != nil {
		t.Fatalf("create pool: %v", err)
	}
}
