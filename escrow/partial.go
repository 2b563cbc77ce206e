package escrow

import "math/big"

// PartsAmount is N in spec.md's "N parts, N+1 secrets" scheme: indices
// 0..N-1 each redeem an equal share, and index N is the dust-absorbing
// final share. PartsAmount == 0 means partial fills are disabled and the
// wallet/escrow uses a single hashlock instead of a Merkle root.
type PartsAmount uint64

// FillAmount returns the principal share secret index k is entitled to
// redeem out of total, for N parts. Every share below the last is an even
// division; the final share (k == N) absorbs the integer-division
// remainder, so N-1 even shares plus the final share sum to exactly total.
func FillAmount(total Balance, n PartsAmount, k uint64) (Balance, error) {
	if n == 0 {
		return 0, newErr(ErrInvalidPartialFill, "partial fills disabled (parts_amount=0)")
	}
	if k > uint64(n) {
		return 0, newErr(ErrInvalidPartialFill, "index %d out of range [0,%d]", k, n)
	}

	share := int64(total) / int64(n)
	if k < uint64(n) {
		return Balance(share), nil
	}

	remainder := int64(total) % int64(n)
	return Balance(share + remainder), nil
}

// ProportionalSafetyDeposit scales a safety deposit by fill/total, the
// "proportional safety deposit" rule in spec.md §4.1: a partial-fill
// resolver posts only the slice of the safety deposit matching the slice
// of principal they're claiming.
func ProportionalSafetyDeposit(totalDeposit, fill, total Balance) Balance {
	if total == 0 {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(int64(totalDeposit)), big.NewInt(int64(fill)))
	num.Quo(num, big.NewInt(int64(total)))
	return Balance(num.Int64())
}

// ExpectedPartialIndex computes the secret index a fill of size fill must
// present, given filled (the principal already redeemed before this fill)
// and total (the wallet's original funding amount). The formula is
// spec.md's expected_index: ceil((filled+fill)*N/total), except when fill
// exactly exhausts the remaining balance, in which case the caller must
// always use the dust-absorbing final index N regardless of what the
// formula alone would yield.
func ExpectedPartialIndex(total, filled, fill Balance, n PartsAmount) uint64 {
	remaining := total - filled
	if fill == remaining {
		return uint64(n)
	}

	num := new(big.Int).Mul(big.NewInt(int64(filled+fill)), big.NewInt(int64(n)))
	denom := big.NewInt(int64(total))
	num.Add(num, denom)
	num.Sub(num, big.NewInt(1))
	num.Quo(num, denom)
	return num.Uint64()
}

// CheckPartialFill validates that redeeming fill via secretIndex, given
// filled principal already redeemed out of total under n parts, is a
// legal partial fill.
func CheckPartialFill(total, filled, fill Balance, n PartsAmount, secretIndex uint64) error {
	if fill <= 0 || fill > total-filled {
		return newErr(ErrInvalidPartialFill, "fill %d exceeds remaining balance %d", fill, total-filled)
	}

	want := ExpectedPartialIndex(total, filled, fill, n)
	if secretIndex != want {
		return newErr(ErrInvalidPartialFill,
			"secret index %d does not match expected index %d for this fill", secretIndex, want)
	}

	return nil
}
