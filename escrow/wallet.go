package escrow

import "time"

// Wallet is the maker's source-side funding vessel. It is published as a
// shared object: any resolver may drain a proportional share of it into a
// new EscrowSrc, which is exactly why it cannot be represented as a
// singly-owned balance the way an EscrowSrc's principal is once claimed.
//
// A Wallet never references the Escrows drained from it (spec.md §9,
// "cyclic references avoided") -- it only tracks how much has been drawn
// down and which Merkle indices have been consumed.
type Wallet struct {
	ID ObjectID

	OrderHash Hash32
	Asset     AssetID
	Maker     AccountID

	// HashlockOrRoot is the single hashlock (PartsAmount == 0) or the
	// Merkle root over N+1 secret leaves (PartsAmount > 0).
	HashlockOrRoot Hash32
	PartsAmount    PartsAmount

	Auction DutchAuction

	// TotalAmount is the wallet's original funding amount, fixed at
	// publish time. It never changes; it is the "total" spec.md's
	// partial-fill formulas divide against, as opposed to Balance, which
	// tracks what's left.
	TotalAmount Balance

	// Balance is the undrained principal remaining in the wallet.
	// Resolvers may only split it via Drain, never add to it.
	Balance Balance

	// LastUsedIndex is the highest Merkle secret index consumed so far.
	// It is strictly additive: once bumped it never decreases, and a
	// later drain must present a strictly larger index.
	LastUsedIndex uint64
	// IndexSeen guards against re-deriving LastUsedIndex from a replayed
	// index equal to, rather than greater than, the current high-water
	// mark in a concurrent-looking call; see Drain. It is exported only
	// so the store package can persist and restore it across restarts --
	// callers outside this package have no reason to read it directly.
	IndexSeen bool

	IsActive   bool
	DeployedAt time.Time
}

// NewWallet constructs a freshly funded, active Wallet. It does not persist
// or publish the object -- that's the store and Ledger's job.
func NewWallet(
	id ObjectID,
	orderHash Hash32,
	asset AssetID,
	maker AccountID,
	hashlockOrRoot Hash32,
	parts PartsAmount,
	auction DutchAuction,
	funding Balance,
	deployedAt time.Time,
) *Wallet {

	return &Wallet{
		ID:             id,
		OrderHash:      orderHash,
		Asset:          asset,
		Maker:          maker,
		HashlockOrRoot: hashlockOrRoot,
		PartsAmount:    parts,
		Auction:        auction,
		TotalAmount:    funding,
		Balance:        funding,
		IsActive:       true,
		DeployedAt:     deployedAt,
	}
}

// AllowsPartialFills reports whether this wallet was configured for
// Merkle-proven partial fills.
func (w *Wallet) AllowsPartialFills() bool {
	return w.PartsAmount > 0
}

// Filled returns how much of TotalAmount has already been drained.
func (w *Wallet) Filled() Balance {
	return w.TotalAmount - w.Balance
}

// Drain removes amt from the wallet's balance on behalf of a resolver
// creating a source escrow, bumping LastUsedIndex to secretIndex in
// partial-fill mode (single-fill mode always drains the whole balance and
// leaves the index untouched). The wallet is marked inactive once its
// balance reaches zero, matching spec.md §3's Wallet lifecycle.
//
// Callers must have already validated secretIndex and amt against the
// Merkle proof, the Dutch-auction floor, and the remaining balance; Drain
// only enforces the two invariants that must hold no matter what the
// caller checked: the balance never goes negative, and the index is
// strictly increasing.
func (w *Wallet) Drain(amt Balance, secretIndex uint64) error {
	if !w.IsActive {
		return newErr(ErrWalletInactive, "wallet %s is not active", w.ID)
	}
	if amt <= 0 || amt > w.Balance {
		return newErr(ErrInsufficientBalance, "wallet %s cannot fund %d (has %d)", w.ID, amt, w.Balance)
	}

	if w.AllowsPartialFills() {
		if w.IndexSeen && secretIndex <= w.LastUsedIndex {
			return newErr(ErrSecretAlreadyUsed, "index %d already used (last=%d)", secretIndex, w.LastUsedIndex)
		}
		w.LastUsedIndex = secretIndex
		w.IndexSeen = true
	}

	remainder, _ := w.Balance.Split(amt)
	w.Balance = remainder
	if w.Balance.IsZero() {
		w.IsActive = false
	}

	return nil
}
