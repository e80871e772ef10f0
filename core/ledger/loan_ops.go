package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/state"
	nativecommon "lendnet/native/common"
	"lendnet/native/loan"
)

// RequestLoan submits an unsecured loan request on behalf of the caller.
func (l *Ledger) RequestLoan(caller common.Address, asset string, amount *big.Int, durationSeconds uint64, freq loan.Frequency) (*loan.Loan, error) {
	var created *loan.Loan
	err := l.write(caller, "loan.request", "", func(e *engines, _ *state.Manager) error {
		var err error
		created, err = e.loans.RequestLoan(caller, asset, amount, durationSeconds, freq)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RequestLoanWithCollateral submits a secured loan request, locking the
// caller's collateral.
func (l *Ledger) RequestLoanWithCollateral(caller common.Address, asset string, amount *big.Int, durationSeconds uint64, freq loan.Frequency, collateralAsset string, collateralAmount *big.Int) (*loan.Loan, error) {
	var created *loan.Loan
	err := l.write(caller, "loan.request.secured", "", func(e *engines, _ *state.Manager) error {
		var err error
		created, err = e.loans.RequestLoanWithCollateral(caller, asset, amount, durationSeconds, freq, collateralAsset, collateralAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApproveLoan clears a pending loan for disbursement. Approver-only.
func (l *Ledger) ApproveLoan(caller common.Address, id uint64) error {
	if err := l.caller(caller).Require(nativecommon.RoleApprover); err != nil {
		return err
	}
	return l.write(caller, "loan.approve", loanRef(id), func(e *engines, _ *state.Manager) error {
		return e.loans.ApproveLoan(id)
	})
}

// RejectLoan terminally cancels a pending loan. Approver-only.
func (l *Ledger) RejectLoan(caller common.Address, id uint64) error {
	if err := l.caller(caller).Require(nativecommon.RoleApprover); err != nil {
		return err
	}
	return l.write(caller, "loan.reject", loanRef(id), func(e *engines, _ *state.Manager) error {
		return e.loans.RejectLoan(id)
	})
}

// DisburseLoan pays out an approved loan. Loan-operator-only.
func (l *Ledger) DisburseLoan(caller common.Address, id uint64) error {
	if err := l.caller(caller).Require(nativecommon.RoleLoanOperator); err != nil {
		return err
	}
	return l.write(caller, "loan.disburse", loanRef(id), func(e *engines, _ *state.Manager) error {
		return e.loans.DisburseLoan(id)
	})
}

// MakePayment applies a repayment from the loan's borrower.
func (l *Ledger) MakePayment(caller common.Address, id uint64, amount *big.Int) error {
	return l.write(caller, "loan.payment", loanRef(id), func(e *engines, _ *state.Manager) error {
		current, err := e.loans.Get(id)
		if err != nil {
			return err
		}
		if current.Borrower != caller {
			return nativecommon.ErrUnauthorized
		}
		return e.loans.MakePayment(id, amount)
	})
}

// MarkAsDefaulted writes off a delinquent loan. Callable by anyone.
func (l *Ledger) MarkAsDefaulted(caller common.Address, id uint64) error {
	return l.write(caller, "loan.default", loanRef(id), func(e *engines, _ *state.Manager) error {
		return e.loans.MarkAsDefaulted(id)
	})
}

// CalculateLatePenalty quotes the penalty currently accrued on a loan.
func (l *Ledger) CalculateLatePenalty(id uint64) (*big.Int, error) {
	var penalty *big.Int
	err := l.read(func(e *engines) error {
		var err error
		penalty, err = e.loans.CalculateLatePenalty(id)
		return err
	})
	return penalty, err
}

// GetLoan returns the loan record for id.
func (l *Ledger) GetLoan(id uint64) (*loan.Loan, error) {
	var out *loan.Loan
	err := l.read(func(e *engines) error {
		var err error
		out, err = e.loans.Get(id)
		return err
	})
	return out, err
}

// LoansByBorrower returns a page of the borrower's loans.
func (l *Ledger) LoansByBorrower(borrower common.Address, offset, limit int) ([]*loan.Loan, error) {
	var out []*loan.Loan
	err := l.read(func(e *engines) error {
		var err error
		out, err = e.loans.LoansByBorrower(borrower, offset, limit)
		return err
	})
	return out, err
}

// ActiveLoans returns a page of all currently active loans.
func (l *Ledger) ActiveLoans(offset, limit int) ([]*loan.Loan, error) {
	ids, err := l.state.ActiveLoanIDs()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]*loan.Loan, 0, end-offset)
	for _, id := range ids[offset:end] {
		record, ok, err := l.state.GetLoan(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func loanRef(id uint64) string { return fmt.Sprintf("loan/%d", id) }
