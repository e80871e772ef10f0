package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeLoanRequested is emitted when a borrower submits a loan request.
	TypeLoanRequested = "loan.requested"
	// TypeLoanApproved is emitted when a pending loan is approved, either
	// automatically or by an approver.
	TypeLoanApproved = "loan.approved"
	// TypeLoanRejected is emitted when a pending loan is cancelled.
	TypeLoanRejected = "loan.rejected"
	// TypeLoanDisbursed is emitted when principal is paid out to the borrower.
	TypeLoanDisbursed = "loan.disbursed"
	// TypeLoanPayment is emitted for every accepted repayment.
	TypeLoanPayment = "loan.payment"
	// TypeLoanCompleted is emitted when a loan is fully repaid.
	TypeLoanCompleted = "loan.completed"
	// TypeLoanDefaulted is emitted when a loan is marked as defaulted.
	TypeLoanDefaulted = "loan.defaulted"
)

// LoanRequested captures the parameters of a newly created loan.
type LoanRequested struct {
	ID          uint64
	Borrower    common.Address
	Asset       string
	Principal   *big.Int
	RateBps     uint64
	AutoApprove bool
}

func (LoanRequested) EventType() string { return TypeLoanRequested }

// LoanApproved marks the transition out of the pending state.
type LoanApproved struct {
	ID uint64
}

func (LoanApproved) EventType() string { return TypeLoanApproved }

// LoanRejected marks a terminal cancellation of a pending loan.
type LoanRejected struct {
	ID uint64
}

func (LoanRejected) EventType() string { return TypeLoanRejected }

// LoanDisbursed records the principal leaving the pool.
type LoanDisbursed struct {
	ID        uint64
	Borrower  common.Address
	Asset     string
	Principal *big.Int
}

func (LoanDisbursed) EventType() string { return TypeLoanDisbursed }

// LoanPayment records an accepted installment or payoff payment.
type LoanPayment struct {
	ID        uint64
	Amount    *big.Int
	Principal *big.Int
	Interest  *big.Int
	Penalty   *big.Int
}

func (LoanPayment) EventType() string { return TypeLoanPayment }

// LoanCompleted marks a fully repaid loan.
type LoanCompleted struct {
	ID       uint64
	Borrower common.Address
}

func (LoanCompleted) EventType() string { return TypeLoanCompleted }

// LoanDefaulted marks a defaulted loan, including whether collateral was
// seized into pool reserves.
type LoanDefaulted struct {
	ID              uint64
	Borrower        common.Address
	CollateralSeize bool
}

func (LoanDefaulted) EventType() string { return TypeLoanDefaulted }
