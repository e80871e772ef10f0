package loan

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/events"
	"lendnet/core/types"
	"lendnet/native/collateral"
	nativecommon "lendnet/native/common"
)

var (
	errNilState = errors.New("loan ledger: state not configured")
	// ErrLoanNotFound is returned when the loan id is unknown.
	ErrLoanNotFound = errors.New("loan ledger: loan not found")
	// ErrInvalidAmount rejects principals outside the configured bounds.
	ErrInvalidAmount = errors.New("loan ledger: amount outside permitted range")
	// ErrInvalidDuration rejects durations outside the configured bounds.
	ErrInvalidDuration = errors.New("loan ledger: duration outside permitted range")
	// ErrInvalidFrequency rejects unsupported repayment cadences.
	ErrInvalidFrequency = errors.New("loan ledger: unsupported repayment frequency")
	// ErrCreditScoreTooLow rejects borrowers under the platform minimum.
	ErrCreditScoreTooLow = errors.New("loan ledger: credit score below platform minimum")
	// ErrActiveLoanLimit rejects borrowers at the concurrent-loan cap.
	ErrActiveLoanLimit = errors.New("loan ledger: active loan limit exceeded")
	// ErrInvalidStateTransition is returned for operations in the wrong state.
	ErrInvalidStateTransition = errors.New("loan ledger: invalid state transition")
	// ErrAlreadyDisbursed guards double disbursement.
	ErrAlreadyDisbursed = errors.New("loan ledger: loan already disbursed")
	// ErrInsufficientRepayment rejects payments under the minimum due.
	ErrInsufficientRepayment = errors.New("loan ledger: payment below minimum due")
	// ErrNotYetDefaultable is returned before the default threshold elapses.
	ErrNotYetDefaultable = errors.New("loan ledger: delinquency below default threshold")
	// ErrInsufficientBalance is returned when the payer cannot fund the call.
	ErrInsufficientBalance = errors.New("loan ledger: insufficient balance")
)

const moduleName = "loan"

// Parameters groups the platform limits and penalty policy for the loan
// ledger.
type Parameters struct {
	MinAmount *big.Int
	MaxAmount *big.Int
	// MinDurationSeconds / MaxDurationSeconds bound the loan term.
	MinDurationSeconds uint64
	MaxDurationSeconds uint64
	// MinCreditScore gates loan requests platform-wide.
	MinCreditScore uint64
	// AutoApproveScore is the high-trust threshold for skipping manual
	// approval.
	AutoApproveScore uint64
	// MaxActiveLoans caps concurrent non-terminal loans per borrower.
	MaxActiveLoans int
	// GracePeriod is the window after a due date before penalties accrue.
	GracePeriod time.Duration
	// DefaultAfter is the delinquency threshold for markAsDefaulted.
	DefaultAfter time.Duration
	// LatePenaltyBpsPerWeek accrues on the installment per week past grace.
	LatePenaltyBpsPerWeek uint64
	// RateFloorBps / RateWorstBps bound the credit-score pricing curve.
	RateFloorBps uint64
	RateWorstBps uint64
	// CollateralDiscountBps is subtracted from the rate for secured loans.
	CollateralDiscountBps uint64
	// CompletionBonus / DefaultPenalty are the credit score deltas applied on
	// the terminal transitions. The penalty magnitude exceeds the bonus.
	CompletionBonus int64
	DefaultPenalty  int64
}

// DefaultParameters is the platform policy used unless configuration
// overrides it.
func DefaultParameters() Parameters {
	return Parameters{
		MinAmount:             big.NewInt(100),
		MaxAmount:             big.NewInt(1_000_000),
		MinDurationSeconds:    7 * 24 * 60 * 60,
		MaxDurationSeconds:    2 * 365 * 24 * 60 * 60,
		MinCreditScore:        500,
		AutoApproveScore:      800,
		MaxActiveLoans:        3,
		GracePeriod:           7 * 24 * time.Hour,
		DefaultAfter:          30 * 24 * time.Hour,
		LatePenaltyBpsPerWeek: 200,
		RateFloorBps:          500,
		RateWorstBps:          2_000,
		CollateralDiscountBps: 200,
		CompletionBonus:       25,
		DefaultPenalty:        75,
	}
}

type engineState interface {
	NextLoanID() (uint64, error)
	GetLoan(id uint64) (*Loan, bool, error)
	PutLoan(l *Loan) error
	LoanIDsByBorrower(addr common.Address) ([]uint64, error)
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
}

// liquidityPool is the slice of the pool engine the loan ledger drives. The
// ledger facade grants the LOAN_OPERATOR role before wiring this.
type liquidityPool interface {
	ModuleAddress() common.Address
	RecordBorrow(asset string, amount *big.Int) error
	RecordRepayment(asset string, principal, interest *big.Int) error
	CreditReserves(asset string, amount *big.Int) error
}

type creditScorer interface {
	Score(addr common.Address) (uint64, error)
	Adjust(addr common.Address, delta int64) (uint64, error)
}

type collateralVault interface {
	LockCollateral(owner common.Address, asset string, amount *big.Int, loanID uint64) error
	Release(loanID uint64) (*collateral.Lock, error)
	Seize(loanID uint64) (*collateral.Lock, error)
}

// Engine owns the loan state machine: request, approval, disbursement,
// amortized repayment, late penalties, and default detection. State writes
// always precede balance moves.
type Engine struct {
	state             engineState
	pool              liquidityPool
	credit            creditScorer
	vault             collateralVault
	collateralAddress common.Address
	params            Parameters
	pauses            nativecommon.PauseView
	emitter           events.Emitter
	nowFn             func() time.Time
}

// NewEngine constructs a loan ledger holding collateral at collateralAddr.
func NewEngine(collateralAddr common.Address, params Parameters) *Engine {
	return &Engine{
		collateralAddress: collateralAddr,
		params:            params,
		emitter:           events.NoopEmitter{},
		nowFn:             func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPool wires the liquidity pool the ledger disburses from.
func (e *Engine) SetPool(p liquidityPool) { e.pool = p }

// SetCreditRegistry wires the score source consulted on request and adjusted
// on the terminal transitions.
func (e *Engine) SetCreditRegistry(c creditScorer) { e.credit = c }

// SetVault wires the collateral vault.
func (e *Engine) SetVault(v collateralVault) { e.vault = v }

// SetPauses wires the pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock. Nil restores the UTC wall clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time { return e.nowFn() }

// RequestLoan validates and creates an unsecured loan. High-trust borrowers
// are approved immediately; everyone else waits for an approver.
func (e *Engine) RequestLoan(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, freq Frequency) (*Loan, error) {
	return e.request(borrower, asset, amount, durationSeconds, freq, "", nil, 0)
}

// RequestLoanWithCollateral creates a secured loan, locking the collateral in
// the vault. Collateral earns a rate discount.
func (e *Engine) RequestLoanWithCollateral(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, freq Frequency, collateralAsset string, collateralAmount *big.Int) (*Loan, error) {
	if collateralAmount == nil || collateralAmount.Sign() <= 0 || collateralAsset == "" {
		return nil, ErrInvalidAmount
	}
	return e.request(borrower, asset, amount, durationSeconds, freq, collateralAsset, collateralAmount, 0)
}

// RequestCircleLoan creates a loan originated by a passed circle proposal.
// Circle loans repay monthly and carry the originating circle id.
func (e *Engine) RequestCircleLoan(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, circleID uint64) (*Loan, error) {
	return e.request(borrower, asset, amount, durationSeconds, FrequencyMonthly, "", nil, circleID)
}

func (e *Engine) request(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, freq Frequency, collateralAsset string, collateralAmount *big.Int, circleID uint64) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Cmp(e.params.MinAmount) < 0 || amount.Cmp(e.params.MaxAmount) > 0 {
		return nil, ErrInvalidAmount
	}
	if durationSeconds < e.params.MinDurationSeconds || durationSeconds > e.params.MaxDurationSeconds {
		return nil, ErrInvalidDuration
	}
	if !freq.Valid() {
		return nil, ErrInvalidFrequency
	}

	score, err := e.credit.Score(borrower)
	if err != nil {
		return nil, err
	}
	if score < e.params.MinCreditScore {
		return nil, ErrCreditScoreTooLow
	}

	open, err := e.openLoanCount(borrower)
	if err != nil {
		return nil, err
	}
	if open >= e.params.MaxActiveLoans {
		return nil, ErrActiveLoanLimit
	}

	hasCollateral := collateralAmount != nil && collateralAmount.Sign() > 0
	rate := RateForScore(score, hasCollateral, e.params.RateFloorBps, e.params.RateWorstBps, e.params.CollateralDiscountBps)
	schedule := Amortize(amount, rate, durationSeconds, freq)

	id, err := e.state.NextLoanID()
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if score >= e.params.AutoApproveScore {
		status = StatusApproved
	}

	l := &Loan{
		ID:                id,
		Borrower:          borrower,
		Asset:             asset,
		Principal:         new(big.Int).Set(amount),
		InterestRateBps:   rate,
		DurationSeconds:   durationSeconds,
		Frequency:         freq,
		InstallmentAmount: schedule.Installment,
		TotalInstallments: schedule.TotalInstallments,
		TotalDue:          schedule.TotalDue,
		AmountPaid:        big.NewInt(0),
		InterestPaid:      big.NewInt(0),
		PenaltiesPaid:     big.NewInt(0),
		Status:            status,
		CreatedAt:         e.now(),
		HasCollateral:     hasCollateral,
		CircleID:          circleID,
	}

	if hasCollateral {
		l.CollateralAsset = collateralAsset
		l.CollateralAmount = new(big.Int).Set(collateralAmount)

		borrowerAcc, err := e.loadAccount(borrower)
		if err != nil {
			return nil, err
		}
		if borrowerAcc.Balance(collateralAsset).Cmp(collateralAmount) < 0 {
			return nil, ErrInsufficientBalance
		}
		if err := e.vault.LockCollateral(borrower, collateralAsset, collateralAmount, id); err != nil {
			return nil, err
		}
		if err := e.state.PutLoan(l); err != nil {
			return nil, err
		}
		vaultAcc, err := e.loadAccount(e.collateralAddress)
		if err != nil {
			return nil, err
		}
		if !borrowerAcc.Debit(collateralAsset, collateralAmount) {
			return nil, ErrInsufficientBalance
		}
		vaultAcc.Credit(collateralAsset, collateralAmount)
		if err := e.state.PutAccount(borrower, borrowerAcc); err != nil {
			return nil, err
		}
		if err := e.state.PutAccount(e.collateralAddress, vaultAcc); err != nil {
			return nil, err
		}
	} else if err := e.state.PutLoan(l); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.LoanRequested{
		ID:          id,
		Borrower:    borrower,
		Asset:       asset,
		Principal:   new(big.Int).Set(amount),
		RateBps:     rate,
		AutoApprove: status == StatusApproved,
	})
	return l, nil
}

// ApproveLoan transitions a pending loan to approved.
func (e *Engine) ApproveLoan(id uint64) error {
	l, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if l.Status != StatusPending {
		return ErrInvalidStateTransition
	}
	l.Status = StatusApproved
	if err := e.state.PutLoan(l); err != nil {
		return err
	}
	e.emitter.Emit(events.LoanApproved{ID: id})
	return nil
}

// RejectLoan terminally cancels a pending loan and refunds any locked
// collateral.
func (e *Engine) RejectLoan(id uint64) error {
	l, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if l.Status != StatusPending {
		return ErrInvalidStateTransition
	}
	l.Status = StatusCancelled
	if err := e.state.PutLoan(l); err != nil {
		return err
	}
	if l.HasCollateral {
		if err := e.refundCollateral(l); err != nil {
			return err
		}
	}
	e.emitter.Emit(events.LoanRejected{ID: id})
	return nil
}

// DisburseLoan pays out an approved loan: the pool records the borrow, the
// loan activates, and principal moves from the pool module to the borrower.
func (e *Engine) DisburseLoan(id uint64) error {
	l, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !l.StartTime.IsZero() {
		return ErrAlreadyDisbursed
	}
	if l.Status != StatusApproved {
		return ErrInvalidStateTransition
	}

	if err := e.pool.RecordBorrow(l.Asset, l.Principal); err != nil {
		return err
	}

	now := e.now()
	l.Status = StatusActive
	l.StartTime = now
	l.NextPaymentDue = now.Add(l.Frequency.Period())
	if err := e.state.PutLoan(l); err != nil {
		return err
	}

	poolAcc, err := e.loadAccount(e.pool.ModuleAddress())
	if err != nil {
		return err
	}
	if !poolAcc.Debit(l.Asset, l.Principal) {
		return ErrInsufficientBalance
	}
	borrowerAcc, err := e.loadAccount(l.Borrower)
	if err != nil {
		return err
	}
	borrowerAcc.Credit(l.Asset, l.Principal)
	if err := e.state.PutAccount(e.pool.ModuleAddress(), poolAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(l.Borrower, borrowerAcc); err != nil {
		return err
	}

	e.emitter.Emit(events.LoanDisbursed{ID: id, Borrower: l.Borrower, Asset: l.Asset, Principal: new(big.Int).Set(l.Principal)})
	return nil
}

// CalculateLatePenalty returns the penalty accrued on the instant due
// installment. Zero within the grace period.
func (e *Engine) CalculateLatePenalty(id uint64) (*big.Int, error) {
	l, err := e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return big.NewInt(0), nil
	}
	return LatePenalty(l.InstallmentAmount, l.NextPaymentDue, e.now(), e.params.GracePeriod, e.params.LatePenaltyBpsPerWeek), nil
}

// MakePayment applies a repayment to an active loan. The payment must cover
// the minimum due (installment plus accrued penalty, or the full remaining
// balance on the final installment); partial payments below that are
// rejected. Overpayment up to full payoff is accepted.
func (e *Engine) MakePayment(id uint64, amount *big.Int) error {
	l, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if l.Status != StatusActive {
		return ErrInvalidStateTransition
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientRepayment
	}

	now := e.now()
	penalty := LatePenalty(l.InstallmentAmount, l.NextPaymentDue, now, e.params.GracePeriod, e.params.LatePenaltyBpsPerWeek)
	remaining := l.RemainingDue()

	minDue := new(big.Int).Set(l.InstallmentAmount)
	finalInstallment := l.PaidInstallments+1 >= l.TotalInstallments || remaining.Cmp(l.InstallmentAmount) < 0
	if finalInstallment {
		minDue.Set(remaining)
	}
	minDue.Add(minDue, penalty)
	payoff := new(big.Int).Add(remaining, penalty)
	if amount.Cmp(minDue) < 0 {
		return ErrInsufficientRepayment
	}

	// The charge is capped at the full payoff; anything beyond stays with
	// the borrower.
	charge := new(big.Int).Set(amount)
	if charge.Cmp(payoff) > 0 {
		charge.Set(payoff)
	}
	applied := new(big.Int).Sub(charge, penalty)

	borrowerAcc, err := e.loadAccount(l.Borrower)
	if err != nil {
		return err
	}
	if borrowerAcc.Balance(l.Asset).Cmp(charge) < 0 {
		return ErrInsufficientBalance
	}

	interestPortion := InterestPortion(applied, l.TotalDue, l.Principal)
	principalPortion := new(big.Int).Sub(applied, interestPortion)
	principalRemaining := new(big.Int).Sub(l.Principal, l.PrincipalPaid())
	if principalPortion.Cmp(principalRemaining) > 0 {
		shifted := new(big.Int).Sub(principalPortion, principalRemaining)
		principalPortion.Set(principalRemaining)
		interestPortion.Add(interestPortion, shifted)
	}

	l.AmountPaid = new(big.Int).Add(l.AmountPaid, applied)
	l.InterestPaid = new(big.Int).Add(l.InterestPaid, interestPortion)
	l.PenaltiesPaid = new(big.Int).Add(l.PenaltiesPaid, penalty)
	if penalty.Sign() > 0 {
		l.LatePaymentCount++
	}

	completed := l.AmountPaid.Cmp(l.TotalDue) >= 0
	if completed {
		l.PaidInstallments = l.TotalInstallments
		l.Status = StatusCompleted
		// Conservation: route any unpaid principal sliver into the final
		// principal split rather than leaving dust outstanding.
		tail := new(big.Int).Sub(principalRemaining, principalPortion)
		if tail.Sign() > 0 {
			principalPortion.Add(principalPortion, tail)
			interestPortion.Sub(interestPortion, tail)
			if interestPortion.Sign() < 0 {
				interestPortion = big.NewInt(0)
			}
			l.InterestPaid.Sub(l.InterestPaid, tail)
			if l.InterestPaid.Sign() < 0 {
				l.InterestPaid = big.NewInt(0)
			}
		}
	} else {
		periods := uint32(1)
		if l.InstallmentAmount.Sign() > 0 {
			covered := new(big.Int).Quo(applied, l.InstallmentAmount)
			if covered.IsUint64() && covered.Uint64() > 1 {
				periods = uint32(covered.Uint64())
			}
		}
		if open := l.TotalInstallments - l.PaidInstallments; periods > open {
			periods = open
		}
		l.PaidInstallments += periods
		l.NextPaymentDue = l.NextPaymentDue.Add(time.Duration(periods) * l.Frequency.Period())
	}

	if err := e.state.PutLoan(l); err != nil {
		return err
	}
	poolInterest := new(big.Int).Add(interestPortion, penalty)
	if err := e.pool.RecordRepayment(l.Asset, principalPortion, poolInterest); err != nil {
		return err
	}

	if !borrowerAcc.Debit(l.Asset, charge) {
		return ErrInsufficientBalance
	}
	poolAcc, err := e.loadAccount(e.pool.ModuleAddress())
	if err != nil {
		return err
	}
	poolAcc.Credit(l.Asset, charge)
	if err := e.state.PutAccount(l.Borrower, borrowerAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.pool.ModuleAddress(), poolAcc); err != nil {
		return err
	}

	e.emitter.Emit(events.LoanPayment{
		ID:        id,
		Amount:    new(big.Int).Set(charge),
		Principal: new(big.Int).Set(principalPortion),
		Interest:  new(big.Int).Set(interestPortion),
		Penalty:   new(big.Int).Set(penalty),
	})

	if completed {
		if _, err := e.credit.Adjust(l.Borrower, e.params.CompletionBonus); err != nil {
			return err
		}
		if l.HasCollateral {
			if err := e.refundCollateral(l); err != nil {
				return err
			}
		}
		e.emitter.Emit(events.LoanCompleted{ID: id, Borrower: l.Borrower})
	}
	return nil
}

// MarkAsDefaulted writes off a loan whose delinquency exceeds the default
// threshold. Callable by anyone; the threshold is the only gate. Seized
// collateral is forfeited to the pool's reserve buffer.
func (e *Engine) MarkAsDefaulted(id uint64) error {
	l, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if l.Status != StatusActive {
		return ErrInvalidStateTransition
	}
	// The default clock starts when the grace period ends.
	deadline := l.NextPaymentDue.Add(e.params.GracePeriod).Add(e.params.DefaultAfter)
	if !e.now().After(deadline) {
		return ErrNotYetDefaultable
	}

	l.Status = StatusDefaulted
	if err := e.state.PutLoan(l); err != nil {
		return err
	}
	if _, err := e.credit.Adjust(l.Borrower, -e.params.DefaultPenalty); err != nil {
		return err
	}

	seized := false
	if l.HasCollateral {
		lock, err := e.vault.Seize(id)
		if err == nil && lock != nil {
			seized = true
			vaultAcc, err := e.loadAccount(e.collateralAddress)
			if err != nil {
				return err
			}
			if vaultAcc.Debit(lock.Asset, lock.Amount) {
				poolAcc, err := e.loadAccount(e.pool.ModuleAddress())
				if err != nil {
					return err
				}
				poolAcc.Credit(lock.Asset, lock.Amount)
				if err := e.state.PutAccount(e.collateralAddress, vaultAcc); err != nil {
					return err
				}
				if err := e.state.PutAccount(e.pool.ModuleAddress(), poolAcc); err != nil {
					return err
				}
				// Forfeit into reserves when the collateral asset has a pool;
				// otherwise the balance stays with the pool module.
				_ = e.pool.CreditReserves(lock.Asset, lock.Amount)
			}
		}
	}

	e.emitter.Emit(events.LoanDefaulted{ID: id, Borrower: l.Borrower, CollateralSeize: seized})
	return nil
}

// Get returns the loan record for id.
func (e *Engine) Get(id uint64) (*Loan, error) {
	return e.loadLoan(id)
}

// LoansByBorrower returns the borrower's loans, newest last, bounded by
// offset/limit. A limit of zero applies the default page size.
func (e *Engine) LoansByBorrower(borrower common.Address, offset, limit int) ([]*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.LoanIDsByBorrower(borrower)
	if err != nil {
		return nil, err
	}
	return e.page(ids, offset, limit)
}

const defaultPageSize = 50

func (e *Engine) page(ids []uint64, offset, limit int) ([]*Loan, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]*Loan, 0, end-offset)
	for _, id := range ids[offset:end] {
		l, ok, err := e.state.GetLoan(id)
		if err != nil {
			return nil, err
		}
		if ok && l != nil {
			l.normalize()
			out = append(out, l)
		}
	}
	return out, nil
}

func (e *Engine) openLoanCount(borrower common.Address) (int, error) {
	ids, err := e.state.LoanIDsByBorrower(borrower)
	if err != nil {
		return 0, err
	}
	open := 0
	for _, id := range ids {
		l, ok, err := e.state.GetLoan(id)
		if err != nil {
			return 0, err
		}
		if ok && l != nil && !l.Status.Terminal() {
			open++
		}
	}
	return open, nil
}

func (e *Engine) refundCollateral(l *Loan) error {
	lock, err := e.vault.Release(l.ID)
	if err != nil {
		if errors.Is(err, collateral.ErrLockNotFound) {
			return nil
		}
		return err
	}
	vaultAcc, err := e.loadAccount(e.collateralAddress)
	if err != nil {
		return err
	}
	if !vaultAcc.Debit(lock.Asset, lock.Amount) {
		return ErrInsufficientBalance
	}
	ownerAcc, err := e.loadAccount(lock.Owner)
	if err != nil {
		return err
	}
	ownerAcc.Credit(lock.Asset, lock.Amount)
	if err := e.state.PutAccount(e.collateralAddress, vaultAcc); err != nil {
		return err
	}
	return e.state.PutAccount(lock.Owner, ownerAcc)
}

func (e *Engine) loadLoan(id uint64) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	l, ok, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if !ok || l == nil {
		return nil, ErrLoanNotFound
	}
	l.normalize()
	return l, nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	return acc, nil
}
