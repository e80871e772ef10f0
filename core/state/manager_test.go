package state

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/collateral"
	"lendnet/native/loan"
	"lendnet/storage"
)

var (
	addrA = common.BytesToAddress([]byte("state-addr-a"))
	addrB = common.BytesToAddress([]byte("state-addr-b"))
)

func newTestManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func TestAccountRoundTrip(t *testing.T) {
	m := newTestManager()
	acc, err := m.GetAccount(addrA)
	if err != nil {
		t.Fatalf("get empty account: %v", err)
	}
	acc.Credit("USDX", big.NewInt(1_000))
	if err := m.PutAccount(addrA, acc); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := m.GetAccount(addrA)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Balance("USDX").Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("balance %s, want 1000", loaded.Balance("USDX"))
	}
}

func TestLoanIndexes(t *testing.T) {
	m := newTestManager()
	id, err := m.NextLoanID()
	if err != nil || id != 1 {
		t.Fatalf("next loan id %d (%v), want 1", id, err)
	}
	l := &loan.Loan{ID: id, Borrower: addrA, Status: loan.StatusPending, Principal: big.NewInt(500)}
	if err := m.PutLoan(l); err != nil {
		t.Fatalf("put loan: %v", err)
	}

	ids, err := m.LoanIDsByBorrower(addrA)
	if err != nil || len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("borrower index %v (%v)", ids, err)
	}
	active, err := m.ActiveLoanIDs()
	if err != nil || len(active) != 0 {
		t.Fatalf("active index %v (%v), want empty", active, err)
	}

	l.Status = loan.StatusActive
	if err := m.PutLoan(l); err != nil {
		t.Fatalf("put active loan: %v", err)
	}
	active, _ = m.ActiveLoanIDs()
	if len(active) != 1 || active[0] != 1 {
		t.Fatalf("active index %v, want [1]", active)
	}
	// Re-writing an active loan must not duplicate the index entry.
	if err := m.PutLoan(l); err != nil {
		t.Fatalf("rewrite loan: %v", err)
	}
	active, _ = m.ActiveLoanIDs()
	if len(active) != 1 {
		t.Fatalf("active index duplicated: %v", active)
	}

	l.Status = loan.StatusCompleted
	if err := m.PutLoan(l); err != nil {
		t.Fatalf("complete loan: %v", err)
	}
	active, _ = m.ActiveLoanIDs()
	if len(active) != 0 {
		t.Fatalf("active index not cleared: %v", active)
	}
	ids, _ = m.LoanIDsByBorrower(addrA)
	if len(ids) != 1 {
		t.Fatalf("borrower index changed on rewrite: %v", ids)
	}
}

func TestCollateralOwnerIndex(t *testing.T) {
	m := newTestManager()
	lock := &collateral.Lock{LoanID: 3, Owner: addrA, Asset: "GOLD", Amount: big.NewInt(200)}
	if err := m.PutCollateralLock(lock); err != nil {
		t.Fatalf("put lock: %v", err)
	}
	locks, err := m.ListCollateralLocksByOwner(addrA)
	if err != nil || len(locks) != 1 || locks[0].LoanID != 3 {
		t.Fatalf("owner locks %v (%v)", locks, err)
	}
	if err := m.DeleteCollateralLock(3); err != nil {
		t.Fatalf("delete lock: %v", err)
	}
	locks, _ = m.ListCollateralLocksByOwner(addrA)
	if len(locks) != 0 {
		t.Fatalf("lock not removed from index: %v", locks)
	}
}

func TestCreditScoreRoundTrip(t *testing.T) {
	m := newTestManager()
	if _, ok, err := m.GetCreditScore(addrA); err != nil || ok {
		t.Fatalf("expected no score, got ok=%v err=%v", ok, err)
	}
	if err := m.PutCreditScore(addrA, 720); err != nil {
		t.Fatalf("put score: %v", err)
	}
	score, ok, err := m.GetCreditScore(addrA)
	if err != nil || !ok || score != 720 {
		t.Fatalf("score %d ok=%v err=%v, want 720", score, ok, err)
	}
}

func TestVouchRoundTrip(t *testing.T) {
	m := newTestManager()
	seen, err := m.HasVouch(1, addrA, addrB)
	if err != nil || seen {
		t.Fatalf("expected no vouch, got %v (%v)", seen, err)
	}
	if err := m.PutVouch(1, addrA, addrB); err != nil {
		t.Fatalf("put vouch: %v", err)
	}
	seen, _ = m.HasVouch(1, addrA, addrB)
	if !seen {
		t.Fatal("vouch not recorded")
	}
	// Direction matters.
	if seen, _ = m.HasVouch(1, addrB, addrA); seen {
		t.Fatal("reverse vouch should not exist")
	}
}

func TestApplyCommitsOnSuccess(t *testing.T) {
	m := newTestManager()
	err := m.Apply(func(sm *Manager) error {
		acc, err := sm.GetAccount(addrA)
		if err != nil {
			return err
		}
		acc.Credit("USDX", big.NewInt(100))
		return sm.PutAccount(addrA, acc)
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	acc, _ := m.GetAccount(addrA)
	if acc.Balance("USDX").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance %s, want 100", acc.Balance("USDX"))
	}
}

func TestApplyRollsBackOnError(t *testing.T) {
	m := newTestManager()
	boom := errors.New("boom")
	err := m.Apply(func(sm *Manager) error {
		acc, err := sm.GetAccount(addrA)
		if err != nil {
			return err
		}
		acc.Credit("USDX", big.NewInt(100))
		if err := sm.PutAccount(addrA, acc); err != nil {
			return err
		}
		if _, err := sm.NextLoanID(); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	acc, _ := m.GetAccount(addrA)
	if acc.Balance("USDX").Sign() != 0 {
		t.Fatalf("write leaked past rollback: %s", acc.Balance("USDX"))
	}
	// The id counter must also roll back.
	id, err := m.NextLoanID()
	if err != nil || id != 1 {
		t.Fatalf("loan id %d (%v), want 1 after rollback", id, err)
	}
}

func TestApplyOverlayReadsOwnWrites(t *testing.T) {
	m := newTestManager()
	err := m.Apply(func(sm *Manager) error {
		if err := sm.PutCreditScore(addrA, 800); err != nil {
			return err
		}
		score, ok, err := sm.GetCreditScore(addrA)
		if err != nil || !ok || score != 800 {
			t.Fatalf("overlay read %d ok=%v err=%v", score, ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	m := newTestManager()
	at := time.Unix(1_700_000_000, 0).UTC()
	for i, action := range []string{"pool.deposit", "loan.request", "loan.approve"} {
		if err := m.AppendAudit(addrA, action, "loan/1", at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("append %s: %v", action, err)
		}
	}
	recs, err := m.AuditRange(1, 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(recs) != 3 || recs[0].Action != "pool.deposit" || recs[2].Seq != 3 {
		t.Fatalf("unexpected audit records: %+v", recs)
	}
	page, _ := m.AuditRange(2, 1)
	if len(page) != 1 || page[0].Action != "loan.request" {
		t.Fatalf("unexpected audit page: %+v", page)
	}
}

func TestRoleMembership(t *testing.T) {
	m := newTestManager()
	if err := m.GrantRole("ADMIN", addrA); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := m.GrantRole("ADMIN", addrA); err != nil {
		t.Fatalf("regrant: %v", err)
	}
	members, err := m.RoleMembers("ADMIN")
	if err != nil || len(members) != 1 || members[0] != addrA {
		t.Fatalf("members %v (%v)", members, err)
	}
	if err := m.RevokeRole("ADMIN", addrA); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	members, _ = m.RoleMembers("ADMIN")
	if len(members) != 0 {
		t.Fatalf("revoke failed: %v", members)
	}
}

func TestWhitelistToggle(t *testing.T) {
	m := newTestManager()
	ok, err := m.AssetWhitelisted("USDX")
	if err != nil || ok {
		t.Fatalf("expected not whitelisted, got %v (%v)", ok, err)
	}
	if err := m.SetAssetWhitelisted("USDX", true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if ok, _ = m.AssetWhitelisted("USDX"); !ok {
		t.Fatal("asset not whitelisted")
	}
	if err := m.SetAssetWhitelisted("USDX", false); err != nil {
		t.Fatalf("unwhitelist: %v", err)
	}
	if ok, _ = m.AssetWhitelisted("USDX"); ok {
		t.Fatal("asset still whitelisted")
	}
}
