package loan

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status enumerates the loan lifecycle. Transitions only move forward; the
// terminal states (Completed, Defaulted, Cancelled) admit no further
// mutation.
type Status uint8

const (
	// StatusPending marks a requested loan awaiting approval.
	StatusPending Status = iota
	// StatusApproved marks a loan cleared for disbursement.
	StatusApproved
	// StatusActive marks a disbursed loan with an open repayment schedule.
	StatusActive
	// StatusCompleted marks a fully repaid loan.
	StatusCompleted
	// StatusDefaulted marks a loan written off after prolonged delinquency.
	StatusDefaulted
	// StatusCancelled marks a pending loan that was rejected.
	StatusCancelled
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDefaulted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusDefaulted:
		return "defaulted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status by name so stored records and API
// responses stay readable.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "pending":
		*s = StatusPending
	case "approved":
		*s = StatusApproved
	case "active":
		*s = StatusActive
	case "completed":
		*s = StatusCompleted
	case "defaulted":
		*s = StatusDefaulted
	case "cancelled":
		*s = StatusCancelled
	default:
		return fmt.Errorf("unknown loan status %q", name)
	}
	return nil
}

// Frequency is the repayment cadence of a loan.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether the frequency is one of the supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Period returns the wall-clock length of one installment interval.
func (f Frequency) Period() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyBiWeekly:
		return 14 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Loan is the append-only record of a single credit line. It is created on
// request and mutated only by ledger operations; records are never deleted.
type Loan struct {
	ID                uint64         `json:"id"`
	Borrower          common.Address `json:"borrower"`
	Asset             string         `json:"asset"`
	Principal         *big.Int       `json:"principal"`
	InterestRateBps   uint64         `json:"interestRateBps"`
	DurationSeconds   uint64         `json:"durationSeconds"`
	Frequency         Frequency      `json:"frequency"`
	InstallmentAmount *big.Int       `json:"installmentAmount"`
	TotalInstallments uint32         `json:"totalInstallments"`
	PaidInstallments  uint32         `json:"paidInstallments"`
	// TotalDue is the scheduled principal-plus-interest total; completion
	// triggers when AmountPaid reaches it.
	TotalDue   *big.Int `json:"totalDue"`
	AmountPaid *big.Int `json:"amountPaid"`
	// InterestPaid is the schedule interest received so far; late penalties
	// are tracked separately in PenaltiesPaid.
	InterestPaid     *big.Int  `json:"interestPaid"`
	PenaltiesPaid    *big.Int  `json:"penaltiesPaid"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	StartTime        time.Time `json:"startTime"`
	NextPaymentDue   time.Time `json:"nextPaymentDue"`
	LatePaymentCount uint32    `json:"latePaymentCount"`
	HasCollateral    bool      `json:"hasCollateral"`
	CollateralAsset  string    `json:"collateralAsset,omitempty"`
	CollateralAmount *big.Int  `json:"collateralAmount,omitempty"`
	// CircleID links circle-originated loans to their circle; zero for
	// individual loans.
	CircleID uint64 `json:"circleId"`
}

func (l *Loan) normalize() {
	if l.Principal == nil {
		l.Principal = big.NewInt(0)
	}
	if l.InstallmentAmount == nil {
		l.InstallmentAmount = big.NewInt(0)
	}
	if l.TotalDue == nil {
		l.TotalDue = big.NewInt(0)
	}
	if l.AmountPaid == nil {
		l.AmountPaid = big.NewInt(0)
	}
	if l.InterestPaid == nil {
		l.InterestPaid = big.NewInt(0)
	}
	if l.PenaltiesPaid == nil {
		l.PenaltiesPaid = big.NewInt(0)
	}
}

// RemainingDue is the scheduled amount still outstanding.
func (l *Loan) RemainingDue() *big.Int {
	remaining := new(big.Int).Sub(l.TotalDue, l.AmountPaid)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// PrincipalPaid is the portion of AmountPaid attributed to principal.
func (l *Loan) PrincipalPaid() *big.Int {
	paid := new(big.Int).Sub(l.AmountPaid, l.InterestPaid)
	if paid.Sign() < 0 {
		return big.NewInt(0)
	}
	if paid.Cmp(l.Principal) > 0 {
		return new(big.Int).Set(l.Principal)
	}
	return paid
}
