package escrow

import "time"

// Timelocks holds the seven monotonically increasing offsets (relative to
// an escrow's deployedAt) that stage who may withdraw or cancel, and when.
// The cross-chain invariants below guarantee a resolver who reveals the
// secret on the destination side still has time left to claim on the
// source side; CheckTimelocks enforces all of them at creation time.
type Timelocks struct {
	DstWithdrawal       time.Duration
	DstPublicWithdrawal time.Duration
	DstCancellation     time.Duration

	SrcWithdrawal         time.Duration
	SrcPublicWithdrawal   time.Duration
	SrcCancellation       time.Duration
	SrcPublicCancellation time.Duration
}

// CheckTimelocks verifies every monotonicity and cross-chain ordering
// invariant spec.md §3 requires of a Timelocks value. It is checked once,
// at escrow creation, and never re-checked afterwards -- the schedule is
// immutable for the life of the object.
func (t Timelocks) CheckTimelocks() error {
	switch {
	case t.DstWithdrawal <= 0:
		return newErr(ErrInvalidTimelock, "dst_withdrawal must be positive")
	case t.DstWithdrawal >= t.DstPublicWithdrawal:
		return newErr(ErrInvalidTimelock, "dst_withdrawal must precede dst_public_withdrawal")
	case t.DstPublicWithdrawal >= t.DstCancellation:
		return newErr(ErrInvalidTimelock, "dst_public_withdrawal must precede dst_cancellation")

	case t.SrcWithdrawal <= 0:
		return newErr(ErrInvalidTimelock, "src_withdrawal must be positive")
	case t.SrcWithdrawal >= t.SrcPublicWithdrawal:
		return newErr(ErrInvalidTimelock, "src_withdrawal must precede src_public_withdrawal")
	case t.SrcPublicWithdrawal >= t.SrcCancellation:
		return newErr(ErrInvalidTimelock, "src_public_withdrawal must precede src_cancellation")
	case t.SrcCancellation >= t.SrcPublicCancellation:
		return newErr(ErrInvalidTimelock, "src_cancellation must precede src_public_cancellation")

	case t.DstWithdrawal >= t.SrcWithdrawal:
		return newErr(ErrInvalidTimelock, "dst_withdrawal must precede src_withdrawal")
	case t.DstPublicWithdrawal >= t.SrcPublicWithdrawal:
		return newErr(ErrInvalidTimelock, "dst_public_withdrawal must precede src_public_withdrawal")
	case t.DstCancellation >= t.SrcCancellation:
		return newErr(ErrInvalidTimelock, "dst_cancellation must precede src_cancellation")
	}

	return nil
}

// SrcStage is the current phase of a source-side escrow's stage schedule.
type SrcStage int

const (
	SrcFinalityLock SrcStage = iota
	SrcResolverExclusiveWithdraw
	SrcPublicWithdraw
	SrcResolverExclusiveCancel
	SrcPublicCancel
)

func (s SrcStage) String() string {
	switch s {
	case SrcFinalityLock:
		return "FinalityLock"
	case SrcResolverExclusiveWithdraw:
		return "ResolverExclusiveWithdraw"
	case SrcPublicWithdraw:
		return "PublicWithdraw"
	case SrcResolverExclusiveCancel:
		return "ResolverExclusiveCancel"
	case SrcPublicCancel:
		return "PublicCancel"
	default:
		return "Unknown"
	}
}

// DstStage is the current phase of a destination-side escrow's stage
// schedule. Unlike the source side, the destination has no public
// cancellation stage: only the resolver may ever cancel a destination
// escrow, since it was the resolver's inventory that funded it.
type DstStage int

const (
	DstFinalityLock DstStage = iota
	DstResolverExclusiveWithdraw
	DstPublicWithdraw
	DstResolverExclusiveCancel
)

func (s DstStage) String() string {
	switch s {
	case DstFinalityLock:
		return "FinalityLock"
	case DstResolverExclusiveWithdraw:
		return "ResolverExclusiveWithdraw"
	case DstPublicWithdraw:
		return "PublicWithdraw"
	case DstResolverExclusiveCancel:
		return "ResolverExclusiveCancel"
	default:
		return "Unknown"
	}
}

// SrcStageAt computes the source-side stage for now, given the escrow's
// timelocks and the wall-clock time it was deployed at. The stage function
// is monotonic in now: it never regresses as now advances, and the set of
// stages during which any one action is accepted is contiguous.
func SrcStageAt(t Timelocks, deployedAt, now time.Time) SrcStage {
	elapsed := now.Sub(deployedAt)

	switch {
	case elapsed < t.SrcWithdrawal:
		return SrcFinalityLock
	case elapsed < t.SrcPublicWithdrawal:
		return SrcResolverExclusiveWithdraw
	case elapsed < t.SrcCancellation:
		return SrcPublicWithdraw
	case elapsed < t.SrcPublicCancellation:
		return SrcResolverExclusiveCancel
	default:
		return SrcPublicCancel
	}
}

// DstStageAt computes the destination-side stage for now.
func DstStageAt(t Timelocks, deployedAt, now time.Time) DstStage {
	elapsed := now.Sub(deployedAt)

	switch {
	case elapsed < t.DstWithdrawal:
		return DstFinalityLock
	case elapsed < t.DstPublicWithdrawal:
		return DstResolverExclusiveWithdraw
	case elapsed < t.DstCancellation:
		return DstPublicWithdraw
	default:
		return DstResolverExclusiveCancel
	}
}
