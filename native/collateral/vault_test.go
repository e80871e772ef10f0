package collateral

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type mockVaultState struct {
	locks map[uint64]*Lock
}

func newMockVaultState() *mockVaultState {
	return &mockVaultState{locks: make(map[uint64]*Lock)}
}

func (m *mockVaultState) GetCollateralLock(loanID uint64) (*Lock, bool, error) {
	lock, ok := m.locks[loanID]
	return lock, ok, nil
}

func (m *mockVaultState) PutCollateralLock(lock *Lock) error {
	m.locks[lock.LoanID] = lock
	return nil
}

func (m *mockVaultState) DeleteCollateralLock(loanID uint64) error {
	delete(m.locks, loanID)
	return nil
}

func (m *mockVaultState) ListCollateralLocksByOwner(owner common.Address) ([]*Lock, error) {
	var out []*Lock
	for _, lock := range m.locks {
		if lock.Owner == owner {
			out = append(out, lock)
		}
	}
	return out, nil
}

func TestLockRejectsDuplicateUnit(t *testing.T) {
	vault := NewVault()
	vault.SetState(newMockVaultState())
	owner := common.BytesToAddress([]byte{0x01})

	if err := vault.LockCollateral(owner, "USDX", big.NewInt(100), 1); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if err := vault.LockCollateral(owner, "USDX", big.NewInt(100), 2); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
	if err := vault.LockCollateral(owner, "USDX", big.NewInt(50), 1); !errors.Is(err, ErrLockExists) {
		t.Fatalf("expected ErrLockExists, got %v", err)
	}
}

func TestReleaseReturnsLockOnce(t *testing.T) {
	vault := NewVault()
	vault.SetState(newMockVaultState())
	owner := common.BytesToAddress([]byte{0x02})

	if err := vault.LockCollateral(owner, "USDX", big.NewInt(75), 7); err != nil {
		t.Fatalf("lock: %v", err)
	}
	lock, err := vault.Release(7)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if lock.Amount.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("unexpected released amount: %s", lock.Amount)
	}
	if _, err := vault.Release(7); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("expected ErrLockNotFound, got %v", err)
	}
}

func TestSeizedLockStaysUnusable(t *testing.T) {
	vault := NewVault()
	vault.SetState(newMockVaultState())
	owner := common.BytesToAddress([]byte{0x03})

	if err := vault.LockCollateral(owner, "USDX", big.NewInt(40), 9); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := vault.Seize(9); err != nil {
		t.Fatalf("seize: %v", err)
	}
	if _, err := vault.Seize(9); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("double seize should fail, got %v", err)
	}
	if _, err := vault.Release(9); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("seized lock must not release, got %v", err)
	}
	// The seized unit remains pledged, blocking reuse for a new loan.
	if err := vault.LockCollateral(owner, "USDX", big.NewInt(40), 10); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked after seizure, got %v", err)
	}
	locked, err := vault.Locked(9)
	if err != nil || locked {
		t.Fatalf("seized lock should not report live, locked=%v err=%v", locked, err)
	}
}
