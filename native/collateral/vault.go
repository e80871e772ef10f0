package collateral

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	errNilState = errors.New("collateral vault: state not configured")
	// ErrAlreadyLocked is returned when the owner's collateral unit for the
	// asset is pledged to a different loan.
	ErrAlreadyLocked = errors.New("collateral vault: asset already locked for another loan")
	// ErrLockExists is returned on a duplicate lock for the same loan.
	ErrLockExists = errors.New("collateral vault: loan already has collateral locked")
	// ErrLockNotFound is returned when releasing or seizing an unknown loan id.
	ErrLockNotFound = errors.New("collateral vault: no collateral locked for loan")
	errInvalidLock  = errors.New("collateral vault: amount must be positive")
)

// Lock records collateral pledged against a single loan. Once seized the lock
// is retained with Seized=true so the unit can never be reused by a later
// loan.
type Lock struct {
	LoanID uint64         `json:"loanId"`
	Owner  common.Address `json:"owner"`
	Asset  string         `json:"asset"`
	Amount *big.Int       `json:"amount"`
	Seized bool           `json:"seized"`
}

type vaultState interface {
	GetCollateralLock(loanID uint64) (*Lock, bool, error)
	PutCollateralLock(lock *Lock) error
	DeleteCollateralLock(loanID uint64) error
	ListCollateralLocksByOwner(owner common.Address) ([]*Lock, error)
}

// Vault locks a borrower's asset against a specific loan id. It does not move
// token balances itself; the loan ledger debits the owner before locking and
// credits the recipient after release or seizure, keeping effects ahead of
// interactions.
type Vault struct {
	state vaultState
}

// NewVault constructs an unwired vault.
func NewVault() *Vault { return &Vault{} }

// SetState wires the vault to the persistence layer.
func (v *Vault) SetState(state vaultState) { v.state = state }

// LockCollateral pledges (asset, amount) from owner to loanID. It fails when
// the loan already has collateral or when the owner already has a live lock
// for the same asset, matching the one-unit-per-loan rule.
func (v *Vault) LockCollateral(owner common.Address, asset string, amount *big.Int, loanID uint64) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidLock
	}
	if _, ok, err := v.state.GetCollateralLock(loanID); err != nil {
		return err
	} else if ok {
		return ErrLockExists
	}
	existing, err := v.state.ListCollateralLocksByOwner(owner)
	if err != nil {
		return err
	}
	for _, lock := range existing {
		if lock == nil {
			continue
		}
		if lock.Asset == asset && lock.LoanID != loanID {
			return ErrAlreadyLocked
		}
	}
	return v.state.PutCollateralLock(&Lock{
		LoanID: loanID,
		Owner:  owner,
		Asset:  asset,
		Amount: new(big.Int).Set(amount),
	})
}

// Release removes the lock for loanID and returns it so the caller can refund
// the owner. Seized locks cannot be released.
func (v *Vault) Release(loanID uint64) (*Lock, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	lock, ok, err := v.state.GetCollateralLock(loanID)
	if err != nil {
		return nil, err
	}
	if !ok || lock == nil {
		return nil, ErrLockNotFound
	}
	if lock.Seized {
		return nil, ErrLockNotFound
	}
	if err := v.state.DeleteCollateralLock(loanID); err != nil {
		return nil, err
	}
	return lock, nil
}

// Seize marks the lock for loanID as forfeit and returns it so the caller can
// route the collateral. The lock record is kept so the unit stays unusable.
func (v *Vault) Seize(loanID uint64) (*Lock, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	lock, ok, err := v.state.GetCollateralLock(loanID)
	if err != nil {
		return nil, err
	}
	if !ok || lock == nil || lock.Seized {
		return nil, ErrLockNotFound
	}
	lock.Seized = true
	if err := v.state.PutCollateralLock(lock); err != nil {
		return nil, err
	}
	return lock, nil
}

// Locked reports whether loanID currently has live (non-seized) collateral.
func (v *Vault) Locked(loanID uint64) (bool, error) {
	if v == nil || v.state == nil {
		return false, errNilState
	}
	lock, ok, err := v.state.GetCollateralLock(loanID)
	if err != nil {
		return false, err
	}
	return ok && lock != nil && !lock.Seized, nil
}
