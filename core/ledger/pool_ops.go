package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/state"
	"lendnet/native/pool"
)

// Deposit supplies liquidity to the asset pool, minting shares for the
// caller. Returns the shares minted.
func (l *Ledger) Deposit(caller common.Address, asset string, amount *big.Int) (*big.Int, error) {
	var minted *big.Int
	err := l.write(caller, "pool.deposit", "pool/"+asset, func(e *engines, _ *state.Manager) error {
		var err error
		minted, err = e.pool.Deposit(caller, asset, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// Withdraw redeems the caller's shares for the underlying assets. Returns the
// amount paid out.
func (l *Ledger) Withdraw(caller common.Address, asset string, shares *big.Int) (*big.Int, error) {
	var paid *big.Int
	err := l.write(caller, "pool.withdraw", "pool/"+asset, func(e *engines, _ *state.Manager) error {
		var err error
		paid, err = e.pool.Withdraw(caller, asset, shares)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// PoolState returns the aggregate market state for asset.
func (l *Ledger) PoolState(asset string) (*pool.Pool, error) {
	var p *pool.Pool
	err := l.read(func(e *engines) error {
		var err error
		p, err = e.pool.PoolState(asset)
		return err
	})
	return p, err
}

// PositionOf returns the caller's lender position in asset.
func (l *Ledger) PositionOf(owner common.Address, asset string) (*pool.Position, error) {
	var position *pool.Position
	err := l.read(func(e *engines) error {
		var err error
		position, err = e.pool.PositionOf(owner, asset)
		return err
	})
	return position, err
}

// BorrowRateBps returns the current utilization-priced borrow rate for asset.
func (l *Ledger) BorrowRateBps(asset string) (uint64, error) {
	var rate uint64
	err := l.read(func(e *engines) error {
		var err error
		rate, err = e.pool.BorrowRateBps(asset)
		return err
	})
	return rate, err
}
