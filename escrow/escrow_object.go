package escrow

import "time"

// Status is the three-state, one-way lifecycle every escrow object moves
// through: Active is the only state from which a transition is possible,
// and both Withdrawn and Cancelled are final.
type Status int

const (
	StatusActive Status = iota
	StatusWithdrawn
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusWithdrawn:
		return "Withdrawn"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// MerkleState is the optional partial-fill provenance an escrow carries
// when it was created from a Merkle-mode wallet: which root it was
// redeemed against, under how many parts, and at which leaf index. The
// wallet itself (not this struct) is what rejects a replayed index --
// once a wallet drains past an index it never accepts that index again --
// so this is a record of provenance, not an enforcement point.
type MerkleState struct {
	Root        Hash32
	PartsAmount PartsAmount
	Index       uint64
}

// Params are the immutable fields bound to an escrow at creation time;
// they never change for the life of the object, including across admin
// reconfiguration of AdminConfig (spec.md §6: "never retroactively affect
// existing escrows").
type Params struct {
	OrderHash Hash32
	Asset     AssetID

	Maker    AccountID
	Taker    AccountID
	Resolver AccountID

	Amount        Balance
	SafetyDeposit Balance

	Timelocks  Timelocks
	DeployedAt time.Time
}

// Escrow is the shared state machine for both EscrowSrc and EscrowDst: the
// two sides differ only in which stage function applies, who the
// principal is returned to on cancel, and who receives it on withdraw --
// all of which is decided by the Side field and handled in settlement.go.
// Keeping one struct for both sides (rather than duplicating it) means the
// conservation and Merkle invariants only need to be written, and tested,
// once.
type Escrow struct {
	ID ObjectID

	Side Side

	Params Params

	Principal     Balance
	SafetyDeposit Balance

	Status Status

	// Hashlock is what a revealed secret must hash to: the wallet's single
	// hashlock in single-fill mode, or the leaf's secret hash in Merkle
	// mode, where Merkle is non-nil and records the root and leaf index.
	Hashlock Hash32
	Merkle   *MerkleState
}

// Side distinguishes a source escrow (pays the taker, refunds the maker)
// from a destination escrow (pays the maker, refunds the taker).
type Side int

const (
	SideSrc Side = iota
	SideDst
)

func (s Side) String() string {
	if s == SideSrc {
		return "src"
	}
	return "dst"
}

// IsMerkle reports whether this escrow was created in partial-fill mode.
func (e *Escrow) IsMerkle() bool {
	return e.Merkle != nil
}
