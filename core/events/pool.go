package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypePoolDeposit is emitted when a lender supplies liquidity.
	TypePoolDeposit = "pool.deposit"
	// TypePoolWithdraw is emitted when a lender redeems shares.
	TypePoolWithdraw = "pool.withdraw"
	// TypePoolReservesWithdrawn is emitted when the platform buffer is drained
	// by an administrator.
	TypePoolReservesWithdrawn = "pool.reserves.withdrawn"
)

// PoolDeposit records newly supplied liquidity and the shares minted for it.
type PoolDeposit struct {
	Lender common.Address
	Asset  string
	Amount *big.Int
	Shares *big.Int
}

func (PoolDeposit) EventType() string { return TypePoolDeposit }

// PoolWithdraw records a share redemption.
type PoolWithdraw struct {
	Lender common.Address
	Asset  string
	Shares *big.Int
	Amount *big.Int
}

func (PoolWithdraw) EventType() string { return TypePoolWithdraw }

// PoolReservesWithdrawn records a privileged reserve withdrawal.
type PoolReservesWithdrawn struct {
	Recipient common.Address
	Asset     string
	Amount    *big.Int
}

func (PoolReservesWithdrawn) EventType() string { return TypePoolReservesWithdrawn }
