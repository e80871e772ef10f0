package pool

import "math/big"

const (
	bpsDenominator uint64 = 10_000
	// maxBorrowRateBps is the hard ceiling on the borrow rate: 100%.
	maxBorrowRateBps uint64 = 10_000
)

var basisPoints = new(big.Int).SetUint64(bpsDenominator)

// RateModel shapes how the borrow rate reacts to pool utilisation. All
// parameters are integer basis points so the curve is deterministic across
// repeated evaluation.
//
// Below the kink the rate climbs gently with slope1; above it slope2 takes
// over, discouraging pool drain while keeping low-utilisation borrowing
// cheap. The curve is monotonically non-decreasing and continuous at the
// kink by construction.
type RateModel struct {
	// BaseBps is the borrow rate at zero utilisation.
	BaseBps uint64
	// Slope1Bps is the rate increase across the full utilisation range below
	// the kink.
	Slope1Bps uint64
	// Slope2Bps is the additional rate increase per unit of utilisation above
	// the kink.
	Slope2Bps uint64
	// KinkBps is the utilisation (in basis points) where the slope changes.
	KinkBps uint64
}

// Clone returns a copy of the rate model.
func (m *RateModel) Clone() *RateModel {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// DefaultRateModel is a 2% base with a kink at 80% utilisation.
var DefaultRateModel = &RateModel{
	BaseBps:   200,
	Slope1Bps: 1_000,
	Slope2Bps: 6_000,
	KinkBps:   8_000,
}

// UtilisationBps returns borrowed/deposits scaled to basis points, floored.
// Utilisation of an empty pool is defined as zero.
func UtilisationBps(totalBorrowed, totalDeposits *big.Int) uint64 {
	if totalBorrowed == nil || totalBorrowed.Sign() <= 0 {
		return 0
	}
	if totalDeposits == nil || totalDeposits.Sign() <= 0 {
		return 0
	}
	scaled := new(big.Int).Mul(totalBorrowed, basisPoints)
	scaled.Quo(scaled, totalDeposits)
	if !scaled.IsUint64() {
		return bpsDenominator
	}
	u := scaled.Uint64()
	if u > bpsDenominator {
		return bpsDenominator
	}
	return u
}

// BorrowRateBps evaluates the kinked curve at the given utilisation and caps
// the result at the hard ceiling.
func (m *RateModel) BorrowRateBps(utilisationBps uint64) uint64 {
	if m == nil {
		return 0
	}
	if utilisationBps > bpsDenominator {
		utilisationBps = bpsDenominator
	}
	rate := m.BaseBps
	kink := m.KinkBps
	if kink == 0 || utilisationBps <= kink {
		rate += m.Slope1Bps * utilisationBps / bpsDenominator
	} else {
		rate += m.Slope1Bps * kink / bpsDenominator
		rate += m.Slope2Bps * (utilisationBps - kink) / bpsDenominator
	}
	if rate > maxBorrowRateBps {
		rate = maxBorrowRateBps
	}
	return rate
}
