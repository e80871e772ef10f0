package pool

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/events"
	"lendnet/core/types"
	nativecommon "lendnet/native/common"
)

var (
	errNilState = errors.New("pool engine: state not configured")
	// ErrAssetNotWhitelisted is returned when the asset has not been admitted
	// by an administrator.
	ErrAssetNotWhitelisted = errors.New("pool engine: asset not whitelisted")
	// ErrPoolNotCreated is returned when no pool exists for a whitelisted
	// asset.
	ErrPoolNotCreated = errors.New("pool engine: pool not created for asset")
	// ErrPoolExists is returned when creating a pool twice.
	ErrPoolExists = errors.New("pool engine: pool already created")
	// ErrBelowMinimumDeposit rejects dust deposits.
	ErrBelowMinimumDeposit = errors.New("pool engine: deposit below minimum")
	// ErrInsufficientShares is returned when a withdrawal exceeds the lender's
	// position.
	ErrInsufficientShares = errors.New("pool engine: insufficient shares")
	// ErrInsufficientLiquidity is returned when funds are out on loan or the
	// module balance cannot cover a transfer.
	ErrInsufficientLiquidity = errors.New("pool engine: insufficient liquidity")
	// ErrInsufficientBalance is returned when the caller cannot fund the
	// operation.
	ErrInsufficientBalance = errors.New("pool engine: insufficient balance")
	errInvalidAmount       = errors.New("pool engine: amount must be positive")
)

const moduleName = "pool"

type engineState interface {
	AssetWhitelisted(asset string) (bool, error)
	GetPool(asset string) (*Pool, bool, error)
	PutPool(p *Pool) error
	GetPosition(owner common.Address, asset string) (*Position, bool, error)
	PutPosition(position *Position) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
}

// Engine owns the per-asset share accounting: deposits mint shares against
// the current share value, withdrawals burn them, and repaid interest grows
// the value every share redeems for. Aggregate counters are mutated before
// any balance move so a reentrant callback can never observe stale state.
type Engine struct {
	state         engineState
	moduleAddress common.Address
	minDeposit    *big.Int
	reserveBps    uint64
	rates         *RateModel
	pauses        nativecommon.PauseView
	emitter       events.Emitter
}

// NewEngine constructs a pool engine holding liquidity at moduleAddr.
func NewEngine(moduleAddr common.Address) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		minDeposit:    big.NewInt(0),
		rates:         DefaultRateModel.Clone(),
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses wires the pause switchboard consulted on every mutation.
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

// SetMinDeposit configures the dust-attack guard.
func (e *Engine) SetMinDeposit(min *big.Int) {
	if e == nil {
		return
	}
	if min == nil {
		e.minDeposit = big.NewInt(0)
		return
	}
	e.minDeposit = new(big.Int).Set(min)
}

// SetReserveFactor configures the share of repaid interest skimmed into
// reserves, in basis points.
func (e *Engine) SetReserveFactor(bps uint64) {
	if e == nil {
		return
	}
	if bps > bpsDenominator {
		bps = bpsDenominator
	}
	e.reserveBps = bps
}

// SetRateModel configures the utilisation curve.
func (e *Engine) SetRateModel(model *RateModel) {
	if e == nil {
		return
	}
	if model != nil {
		e.rates = model.Clone()
	} else {
		e.rates = DefaultRateModel.Clone()
	}
}

// ModuleAddress returns the account holding pooled liquidity.
func (e *Engine) ModuleAddress() common.Address { return e.moduleAddress }

// CreatePool initialises the accounting record for a whitelisted asset.
func (e *Engine) CreatePool(asset string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	whitelisted, err := e.state.AssetWhitelisted(asset)
	if err != nil {
		return nil, err
	}
	if !whitelisted {
		return nil, ErrAssetNotWhitelisted
	}
	if _, ok, err := e.state.GetPool(asset); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPoolExists
	}
	p := &Pool{Asset: asset}
	p.normalize()
	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deposit supplies liquidity and mints shares against the current share
// value. The minted share amount is returned.
func (e *Engine) Deposit(lender common.Address, asset string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if e.minDeposit != nil && amount.Cmp(e.minDeposit) < 0 {
		return nil, ErrBelowMinimumDeposit
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return nil, err
	}

	lenderAcc, err := e.loadAccount(lender)
	if err != nil {
		return nil, err
	}
	if lenderAcc.Balance(asset).Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	// Shares mint at par while the pool is empty, then proportionally to the
	// share value base. Floor division keeps the mint conservative.
	minted := new(big.Int)
	if p.TotalShares.Sign() == 0 {
		minted.Set(amount)
	} else {
		minted.Mul(amount, p.TotalShares)
		minted.Quo(minted, p.shareValueBase())
		if minted.Sign() == 0 {
			return nil, ErrBelowMinimumDeposit
		}
	}

	position, err := e.ensurePosition(lender, asset)
	if err != nil {
		return nil, err
	}

	p.TotalDeposits = new(big.Int).Add(p.TotalDeposits, amount)
	p.TotalShares = new(big.Int).Add(p.TotalShares, minted)
	position.Shares = new(big.Int).Add(position.Shares, minted)

	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if !lenderAcc.Debit(asset, amount) {
		return nil, ErrInsufficientBalance
	}
	moduleAcc.Credit(asset, amount)
	if err := e.state.PutAccount(lender, lenderAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.PoolDeposit{Lender: lender, Asset: asset, Amount: new(big.Int).Set(amount), Shares: new(big.Int).Set(minted)})
	return minted, nil
}

// Withdraw burns shares and pays out the redeemed value. Funds currently out
// on loan cannot be withdrawn. The redeemed amount is returned.
func (e *Engine) Withdraw(lender common.Address, asset string, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return nil, err
	}
	if p.TotalShares.Sign() == 0 {
		return nil, ErrInsufficientShares
	}

	position, err := e.ensurePosition(lender, asset)
	if err != nil {
		return nil, err
	}
	if position.Shares.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}

	base := p.shareValueBase()
	amount := new(big.Int).Mul(shares, base)
	amount.Quo(amount, p.TotalShares)
	if amount.Cmp(p.RedeemableLiquidity()) > 0 {
		return nil, ErrInsufficientLiquidity
	}

	// Split the redemption between principal and lender interest pro-rata so
	// both counters stay non-negative and totalShares==0 still implies
	// totalDeposits==0.
	interestPart := new(big.Int)
	if p.AccumulatedInterest.Sign() > 0 {
		interestPart.Mul(amount, p.AccumulatedInterest)
		interestPart.Quo(interestPart, base)
	}
	principalPart := new(big.Int).Sub(amount, interestPart)

	position.Shares = new(big.Int).Sub(position.Shares, shares)
	p.TotalShares = new(big.Int).Sub(p.TotalShares, shares)
	p.TotalDeposits = new(big.Int).Sub(p.TotalDeposits, principalPart)
	p.AccumulatedInterest = new(big.Int).Sub(p.AccumulatedInterest, interestPart)
	if p.TotalShares.Sign() == 0 {
		// Flush rounding dust left by floor division to the payout of the
		// final redeemer.
		amount.Add(amount, p.TotalDeposits)
		amount.Add(amount, p.AccumulatedInterest)
		p.TotalDeposits = big.NewInt(0)
		p.AccumulatedInterest = big.NewInt(0)
	}

	if err := e.state.PutPool(p); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if !moduleAcc.Debit(asset, amount) {
		return nil, ErrInsufficientLiquidity
	}
	lenderAcc, err := e.loadAccount(lender)
	if err != nil {
		return nil, err
	}
	lenderAcc.Credit(asset, amount)
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(lender, lenderAcc); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.PoolWithdraw{Lender: lender, Asset: asset, Shares: new(big.Int).Set(shares), Amount: new(big.Int).Set(amount)})
	return amount, nil
}

// BorrowRateBps evaluates the utilisation curve for the asset's pool.
func (e *Engine) BorrowRateBps(asset string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return 0, err
	}
	u := UtilisationBps(p.TotalBorrowed, p.TotalDeposits)
	return e.rates.BorrowRateBps(u), nil
}

// RecordBorrow moves amount from available liquidity into the outstanding
// borrow tally. Only the loan ledger (LOAN_OPERATOR) reaches this; the ledger
// facade enforces the role.
func (e *Engine) RecordBorrow(asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return err
	}
	if amount.Cmp(p.AvailableLiquidity()) > 0 {
		return ErrInsufficientLiquidity
	}
	p.TotalBorrowed = new(big.Int).Add(p.TotalBorrowed, amount)
	return e.state.PutPool(p)
}

// RecordRepayment returns principal to the pool and distributes interest:
// a reserve-factor skim into TotalReserves, the remainder into
// AccumulatedInterest where it grows lender share value.
func (e *Engine) RecordRepayment(asset string, principal, interest *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if principal == nil {
		principal = big.NewInt(0)
	}
	if interest == nil {
		interest = big.NewInt(0)
	}
	if principal.Sign() < 0 || interest.Sign() < 0 {
		return errInvalidAmount
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return err
	}
	if principal.Sign() > 0 {
		reduced := new(big.Int).Sub(p.TotalBorrowed, principal)
		if reduced.Sign() < 0 {
			reduced = big.NewInt(0)
		}
		p.TotalBorrowed = reduced
	}
	if interest.Sign() > 0 {
		reserveCut := new(big.Int).Mul(interest, new(big.Int).SetUint64(e.reserveBps))
		reserveCut.Quo(reserveCut, basisPoints)
		lenderCut := new(big.Int).Sub(interest, reserveCut)
		p.TotalReserves = new(big.Int).Add(p.TotalReserves, reserveCut)
		p.AccumulatedInterest = new(big.Int).Add(p.AccumulatedInterest, lenderCut)
	}
	return e.state.PutPool(p)
}

// CreditReserves adds amount directly to the pool's reserve buffer. Used when
// seized collateral is forfeited to the pool.
func (e *Engine) CreditReserves(asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return err
	}
	p.TotalReserves = new(big.Int).Add(p.TotalReserves, amount)
	return e.state.PutPool(p)
}

// WithdrawReserves transfers accrued reserves to the recipient. The ledger
// facade restricts this to ADMIN callers.
func (e *Engine) WithdrawReserves(recipient common.Address, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	p, err := e.requirePool(asset)
	if err != nil {
		return err
	}
	if p.TotalReserves.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	p.TotalReserves = new(big.Int).Sub(p.TotalReserves, amount)
	if err := e.state.PutPool(p); err != nil {
		return err
	}

	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if !moduleAcc.Debit(asset, amount) {
		return ErrInsufficientLiquidity
	}
	recipientAcc, err := e.loadAccount(recipient)
	if err != nil {
		return err
	}
	recipientAcc.Credit(asset, amount)
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(recipient, recipientAcc); err != nil {
		return err
	}

	e.emitter.Emit(events.PoolReservesWithdrawn{Recipient: recipient, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// PoolState returns the accounting snapshot for the asset.
func (e *Engine) PoolState(asset string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.requirePool(asset)
}

// PositionOf returns the lender's share position, zero-valued when absent.
func (e *Engine) PositionOf(owner common.Address, asset string) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.ensurePosition(owner, asset)
}

func (e *Engine) requirePool(asset string) (*Pool, error) {
	whitelisted, err := e.state.AssetWhitelisted(asset)
	if err != nil {
		return nil, err
	}
	if !whitelisted {
		return nil, ErrAssetNotWhitelisted
	}
	p, ok, err := e.state.GetPool(asset)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return nil, ErrPoolNotCreated
	}
	p.normalize()
	return p, nil
}

func (e *Engine) ensurePosition(owner common.Address, asset string) (*Position, error) {
	position, ok, err := e.state.GetPosition(owner, asset)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		position = &Position{Owner: owner, Asset: asset, Shares: big.NewInt(0)}
	}
	if position.Shares == nil {
		position.Shares = big.NewInt(0)
	}
	return position, nil
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
