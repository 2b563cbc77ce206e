package escrow

import "time"

// Event is the common interface implemented by every notification this
// package emits. Watchers type-switch on the concrete type; the interface
// itself carries nothing beyond a timestamp because each event's useful
// fields differ too much to usefully generalize further.
type Event interface {
	// When reports the ledger-clock time the event was produced.
	When() time.Time
}

type eventBase struct {
	At time.Time
}

func (e eventBase) When() time.Time { return e.At }

// WalletCreated is emitted once a maker's Wallet has been published.
type WalletCreated struct {
	eventBase
	Wallet    ObjectID
	OrderHash Hash32
	Maker     AccountID
	Asset     AssetID
	Amount    Balance
}

// EscrowCreated is emitted when a resolver funds a new EscrowSrc or
// EscrowDst, whether from a whole-fill or a partial Merkle-proven fill.
// Watchers rely on this as the only cross-chain signal that a matching
// escrow now exists on the other chain; every field an independent watcher
// needs to validate that escrow against the order it tracks is carried
// here rather than requiring a second lookup.
type EscrowCreated struct {
	eventBase
	Escrow        ObjectID
	Side          Side
	OrderHash     Hash32
	Hashlock      Hash32
	Maker         AccountID
	Taker         AccountID
	Resolver      AccountID
	Amount        Balance
	SafetyDeposit Balance
	IsMerkle      bool
	PartsAmount   PartsAmount
	Index         uint64 // only meaningful when IsMerkle
}

// EscrowWithdrawn is emitted once an escrow's principal has been paid out
// against a revealed secret. WithdrawnBy is whoever called WithdrawSrc/Dst
// (the resolver, or any caller during the public-withdraw stage);
// Recipient is whoever the principal was actually paid to -- the two
// differ during public withdrawal, where the caller collects the safety
// deposit but the principal still flows to the taker/maker.
type EscrowWithdrawn struct {
	eventBase
	Escrow      ObjectID
	Side        Side
	OrderHash   Hash32
	Maker       AccountID
	Taker       AccountID
	WithdrawnBy AccountID
	Recipient   AccountID
	Amount      Balance
	Secret      []byte
	IsMerkle    bool
	MerkleIndex uint64 // only meaningful when IsMerkle; never repeats for the same OrderHash
}

// EscrowCancelled is emitted once an escrow's principal has been returned
// after its withdrawal window lapsed.
type EscrowCancelled struct {
	eventBase
	Escrow    ObjectID
	Side      Side
	OrderHash Hash32
	Maker     AccountID
	Taker     AccountID
	Canceller AccountID
	Amount    Balance
}

// FundsRescued is emitted when a stuck object (past its rescue delay) has
// had its assets force-drained to the caller who invoked Rescue. The
// principal and safety deposit are reported separately since spec.md's
// rescue accounting distinguishes a storage rebate (the deposit) from the
// swap's own stuck principal.
type FundsRescued struct {
	eventBase
	Object          ObjectID
	Rescuer         AccountID
	PrincipalAmount Balance
	DepositAmount   Balance
}

// RescueCandidate is an informational, non-authoritative event: it never
// triggers a rescue by itself, it only names an object the background
// scanner noticed has been past its rescue delay since the last scan.
type RescueCandidate struct {
	eventBase
	Object ObjectID
}

// NewRescueCandidate builds a RescueCandidate stamped at now. It exists
// because eventBase is unexported: the rescuescan package, which lives
// outside this one, has no other way to stamp the event it emits.
func NewRescueCandidate(now time.Time, object ObjectID) RescueCandidate {
	return RescueCandidate{eventBase: eventBase{At: now}, Object: object}
}

// Sink receives every event this package emits. escrow.Ledger never blocks
// on Publish -- an implementation backed by a bounded queue is expected to
// drop or buffer under load rather than stall a settlement call.
type Sink interface {
	Publish(Event)
}

// NopSink discards every event; useful in tests that don't care about the
// event stream.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Event) {}
