package state

import (
	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/collateral"
)

// GetCollateralLock loads the lock recorded for loanID.
func (m *Manager) GetCollateralLock(loanID uint64) (*collateral.Lock, bool, error) {
	lock := new(collateral.Lock)
	ok, err := m.getJSON(lockKey(loanID), lock)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock, true, nil
}

// PutCollateralLock persists a lock and maintains the owner index.
func (m *Manager) PutCollateralLock(lock *collateral.Lock) error {
	_, existed, err := m.GetCollateralLock(lock.LoanID)
	if err != nil {
		return err
	}
	if err := m.putJSON(lockKey(lock.LoanID), lock); err != nil {
		return err
	}
	if existed {
		return nil
	}
	ids, err := m.lockIDsByOwner(lock.Owner)
	if err != nil {
		return err
	}
	return m.putJSON(lockOwnerKey(lock.Owner), append(ids, lock.LoanID))
}

// DeleteCollateralLock removes a lock and its owner index entry.
func (m *Manager) DeleteCollateralLock(loanID uint64) error {
	lock, ok, err := m.GetCollateralLock(loanID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := m.db.Delete(lockKey(loanID)); err != nil {
		return err
	}
	ids, err := m.lockIDsByOwner(lock.Owner)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != loanID {
			filtered = append(filtered, id)
		}
	}
	return m.putJSON(lockOwnerKey(lock.Owner), filtered)
}

// ListCollateralLocksByOwner returns every lock held against owner's assets,
// including seized locks.
func (m *Manager) ListCollateralLocksByOwner(owner common.Address) ([]*collateral.Lock, error) {
	ids, err := m.lockIDsByOwner(owner)
	if err != nil {
		return nil, err
	}
	locks := make([]*collateral.Lock, 0, len(ids))
	for _, id := range ids {
		lock, ok, err := m.GetCollateralLock(id)
		if err != nil {
			return nil, err
		}
		if ok {
			locks = append(locks, lock)
		}
	}
	return locks, nil
}

func (m *Manager) lockIDsByOwner(owner common.Address) ([]uint64, error) {
	var ids []uint64
	if _, err := m.getJSON(lockOwnerKey(owner), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
