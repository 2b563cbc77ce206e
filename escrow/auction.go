package escrow

import (
	"math/big"
	"time"
)

// DutchAuction describes a maker's decreasing reserve-price schedule: a
// resolver's offered taking amount must be at or above the curve's value
// at the moment they create the source escrow. The spec.md §9 open
// question (some source variants collapse to a constant by setting
// takingAmountStart == takingAmountEnd) is resolved here by always keeping
// the two fields independent and using them faithfully -- a maker who
// wants a flat price simply sets them equal.
type DutchAuction struct {
	Start            time.Time
	Duration         time.Duration
	TakingAmountStart Balance
	TakingAmountEnd   Balance
}

// PriceAt returns the minimum acceptable taking amount at now, linearly
// interpolated between TakingAmountStart (at Start) and TakingAmountEnd
// (at Start+Duration). now is clamped into [Start, Start+Duration] first,
// so a resolver acting before the auction opens or after it has fully
// decayed sees the boundary price, not an extrapolated one.
func (d DutchAuction) PriceAt(now time.Time) Balance {
	end := d.Start.Add(d.Duration)

	switch {
	case !now.After(d.Start):
		return d.TakingAmountStart
	case !now.Before(end):
		return d.TakingAmountEnd
	}

	elapsed := now.Sub(d.Start)
	remaining := end.Sub(now)

	num := new(big.Int).Mul(big.NewInt(int64(d.TakingAmountStart)), big.NewInt(int64(remaining)))
	endTerm := new(big.Int).Mul(big.NewInt(int64(d.TakingAmountEnd)), big.NewInt(int64(elapsed)))
	num.Add(num, endTerm)
	num.Quo(num, big.NewInt(int64(d.Duration)))

	return Balance(num.Int64())
}

// CheckOffer rejects a resolver's offered taking amount if it falls
// strictly below the curve at now. The core only enforces this monotonicity
// and bounds contract -- it never negotiates or discovers the price itself.
func (d DutchAuction) CheckOffer(offered Balance, now time.Time) error {
	if min := d.PriceAt(now); offered < min {
		return newErr(ErrInvalidAmount,
			"offered taking amount %d below auction price %d at %s", offered, min, now)
	}
	return nil
}
