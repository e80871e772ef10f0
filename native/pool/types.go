package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool captures the aggregate accounting state for a single asset. Amounts are
// denominated in the asset's smallest unit and expressed as big integers.
type Pool struct {
	// Asset is the whitelisted symbol this pool accounts for.
	Asset string `json:"asset"`
	// TotalDeposits is the aggregate principal currently supplied by lenders.
	TotalDeposits *big.Int `json:"totalDeposits"`
	// TotalBorrowed tracks the outstanding principal lent out to loans.
	TotalBorrowed *big.Int `json:"totalBorrowed"`
	// TotalReserves is the platform buffer skimmed from repaid interest. It is
	// withdrawable only by a privileged role, never by ordinary lenders.
	TotalReserves *big.Int `json:"totalReserves"`
	// AccumulatedInterest is repaid interest attributed to lenders; it grows
	// the redemption value of every share.
	AccumulatedInterest *big.Int `json:"accumulatedInterest"`
	// TotalShares is the supply of lender shares outstanding.
	TotalShares *big.Int `json:"totalShares"`
}

// Position records a lender's share claim on a pool. A position is created on
// first deposit for an (owner, asset) pair and its share count never goes
// below zero.
type Position struct {
	Owner  common.Address `json:"owner"`
	Asset  string         `json:"asset"`
	Shares *big.Int       `json:"shares"`
}

// normalize backfills nil big integers so deserialized pools are safe to use.
func (p *Pool) normalize() {
	if p.TotalDeposits == nil {
		p.TotalDeposits = big.NewInt(0)
	}
	if p.TotalBorrowed == nil {
		p.TotalBorrowed = big.NewInt(0)
	}
	if p.TotalReserves == nil {
		p.TotalReserves = big.NewInt(0)
	}
	if p.AccumulatedInterest == nil {
		p.AccumulatedInterest = big.NewInt(0)
	}
	if p.TotalShares == nil {
		p.TotalShares = big.NewInt(0)
	}
}

// shareValueBase is the value backing all shares: deposits plus lender
// interest.
func (p *Pool) shareValueBase() *big.Int {
	return new(big.Int).Add(p.TotalDeposits, p.AccumulatedInterest)
}

// AvailableLiquidity is the portion of deposits not currently out on loan.
// New borrows draw on this, keeping totalBorrowed bounded by totalDeposits.
func (p *Pool) AvailableLiquidity() *big.Int {
	liquidity := new(big.Int).Sub(p.TotalDeposits, p.TotalBorrowed)
	if liquidity.Sign() < 0 {
		return big.NewInt(0)
	}
	return liquidity
}

// RedeemableLiquidity is the cash on hand for withdrawals: deposits plus
// repaid lender interest, less funds out on loan. Interest repayments sit in
// the module account, so they back redemptions even when idle principal
// alone would not.
func (p *Pool) RedeemableLiquidity() *big.Int {
	liquidity := new(big.Int).Sub(p.shareValueBase(), p.TotalBorrowed)
	if liquidity.Sign() < 0 {
		return big.NewInt(0)
	}
	return liquidity
}
