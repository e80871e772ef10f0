package state

import (
	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/loan"
)

// NextLoanID allocates the next loan id.
func (m *Manager) NextLoanID() (uint64, error) {
	return m.nextID(loanNextIDKey)
}

// GetLoan loads the loan record for id.
func (m *Manager) GetLoan(id uint64) (*loan.Loan, bool, error) {
	l := new(loan.Loan)
	ok, err := m.getJSON(loanKey(id), l)
	if err != nil || !ok {
		return nil, false, err
	}
	return l, true, nil
}

// PutLoan persists a loan record and maintains the borrower and active-loan
// indexes.
func (m *Manager) PutLoan(l *loan.Loan) error {
	existing, existed, err := m.GetLoan(l.ID)
	if err != nil {
		return err
	}
	if err := m.putJSON(loanKey(l.ID), l); err != nil {
		return err
	}
	if !existed {
		ids, err := m.LoanIDsByBorrower(l.Borrower)
		if err != nil {
			return err
		}
		if err := m.putJSON(loanBorrowerKey(l.Borrower), append(ids, l.ID)); err != nil {
			return err
		}
	}

	wasActive := existed && existing.Status == loan.StatusActive
	isActive := l.Status == loan.StatusActive
	if wasActive == isActive {
		return nil
	}
	active, err := m.ActiveLoanIDs()
	if err != nil {
		return err
	}
	if isActive {
		active = append(active, l.ID)
	} else {
		filtered := active[:0]
		for _, id := range active {
			if id != l.ID {
				filtered = append(filtered, id)
			}
		}
		active = filtered
	}
	return m.putJSON(loanActiveKey, active)
}

// LoanIDsByBorrower returns the ids of every loan ever requested by addr, in
// creation order.
func (m *Manager) LoanIDsByBorrower(addr common.Address) ([]uint64, error) {
	var ids []uint64
	if _, err := m.getJSON(loanBorrowerKey(addr), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ActiveLoanIDs returns the ids of every currently active loan.
func (m *Manager) ActiveLoanIDs() ([]uint64, error) {
	var ids []uint64
	if _, err := m.getJSON(loanActiveKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
