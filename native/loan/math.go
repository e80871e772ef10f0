package loan

import (
	"math/big"
	"time"
)

const (
	bpsDenominator = 10_000
	secondsPerYear = 365 * 24 * 60 * 60
	secondsPerWeek = 7 * 24 * 60 * 60
)

// Schedule is the amortization plan computed at request time. Periodic
// payments are equal; only the final installment differs when rounding
// requires it.
type Schedule struct {
	Installment       *big.Int
	TotalInstallments uint32
	TotalDue          *big.Int
}

// installmentCount derives the number of periods from duration and cadence,
// flooring and never returning zero.
func installmentCount(durationSeconds uint64, freq Frequency) uint32 {
	period := uint64(freq.Period() / time.Second)
	if period == 0 {
		return 0
	}
	n := durationSeconds / period
	if n == 0 {
		n = 1
	}
	return uint32(n)
}

// Amortize computes the standard annuity schedule for the loan parameters:
// equal periodic payments whose principal and interest components sum to the
// scheduled total. With a zero rate the schedule is exactly the principal
// split over the installments, the final one absorbing the division
// remainder.
//
// Rounding direction: the periodic payment is rounded up (owed to the
// protocol) and the scheduled total is derived from the rounded payments so
// conservation holds exactly across repeated payments.
func Amortize(principal *big.Int, rateBps uint64, durationSeconds uint64, freq Frequency) Schedule {
	n := installmentCount(durationSeconds, freq)
	if principal == nil || principal.Sign() <= 0 || n == 0 {
		return Schedule{Installment: big.NewInt(0), TotalDue: big.NewInt(0)}
	}
	nBig := new(big.Int).SetUint64(uint64(n))

	if rateBps == 0 {
		installment := new(big.Int).Quo(principal, nBig)
		return Schedule{
			Installment:       installment,
			TotalInstallments: n,
			TotalDue:          new(big.Int).Set(principal),
		}
	}

	// Periodic rate r = rateBps/10000 * period/year, as an exact rational.
	period := int64(freq.Period() / time.Second)
	r := new(big.Rat).SetFrac(
		big.NewInt(int64(rateBps)*period),
		big.NewInt(bpsDenominator*secondsPerYear),
	)

	// payment = P * r * (1+r)^n / ((1+r)^n - 1)
	onePlusR := new(big.Rat).Add(big.NewRat(1, 1), r)
	factor := new(big.Rat).SetInt64(1)
	for i := uint32(0); i < n; i++ {
		factor.Mul(factor, onePlusR)
	}
	numerator := new(big.Rat).SetInt(principal)
	numerator.Mul(numerator, r)
	numerator.Mul(numerator, factor)
	denominator := new(big.Rat).Sub(factor, big.NewRat(1, 1))
	payment := new(big.Rat).Quo(numerator, denominator)

	installment := ceilRat(payment)
	totalDue := new(big.Int).Mul(installment, nBig)
	return Schedule{
		Installment:       installment,
		TotalInstallments: n,
		TotalDue:          totalDue,
	}
}

func ceilRat(r *big.Rat) *big.Int {
	quo, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// InterestPortion splits an applied payment between interest and principal
// pro-rata against the schedule, flooring the interest component so the
// principal component is never understated.
func InterestPortion(applied, totalDue, principal *big.Int) *big.Int {
	if applied == nil || applied.Sign() <= 0 || totalDue == nil || totalDue.Sign() == 0 {
		return big.NewInt(0)
	}
	totalInterest := new(big.Int).Sub(totalDue, principal)
	if totalInterest.Sign() <= 0 {
		return big.NewInt(0)
	}
	portion := new(big.Int).Mul(applied, totalInterest)
	portion.Quo(portion, totalDue)
	return portion
}

// LatePenalty accrues a fixed-rate penalty on the installment for every full
// week elapsed beyond the grace period. It is computed on demand and never
// persisted until paid.
func LatePenalty(installment *big.Int, due, now time.Time, grace time.Duration, penaltyBpsPerWeek uint64) *big.Int {
	if installment == nil || installment.Sign() <= 0 {
		return big.NewInt(0)
	}
	deadline := due.Add(grace)
	if !now.After(deadline) {
		return big.NewInt(0)
	}
	weeks := int64(now.Sub(deadline)/time.Second) / secondsPerWeek
	if weeks <= 0 {
		weeks = 1
	} else {
		// A started week counts in full.
		if int64(now.Sub(deadline)/time.Second)%secondsPerWeek != 0 {
			weeks++
		}
	}
	penalty := new(big.Int).Mul(installment, big.NewInt(weeks))
	penalty.Mul(penalty, new(big.Int).SetUint64(penaltyBpsPerWeek))
	penalty.Quo(penalty, big.NewInt(bpsDenominator))
	return penalty
}

// RateForScore prices a loan from the borrower's credit score: linearly
// decreasing from the worst-score rate down to the floor at a perfect score.
// Collateral earns a fixed discount, never below the floor.
func RateForScore(score uint64, hasCollateral bool, floorBps, worstBps, collateralDiscountBps uint64) uint64 {
	if score > 1000 {
		score = 1000
	}
	if worstBps < floorBps {
		worstBps = floorBps
	}
	span := worstBps - floorBps
	rate := floorBps + span*(1000-score)/1000
	if hasCollateral {
		if rate > collateralDiscountBps+floorBps {
			rate -= collateralDiscountBps
		} else {
			rate = floorBps
		}
	}
	return rate
}
