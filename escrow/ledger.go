package escrow

import (
	"sync"
	"time"
)

// Clock is the time source every entry point reads from exactly once per
// call, never re-reading mid-transition. Production wires this to
// lightningnetwork/lnd/clock.Clock; tests wire it to a fixed or
// manually-advanced implementation.
type Clock interface {
	Now() time.Time
}

// Store is the persistence contract the Ledger depends on. The concrete
// bbolt-backed implementation lives in this module's store package; escrow
// itself never imports a storage driver so that the state-machine logic
// stays testable against an in-memory fake.
type Store interface {
	GetWallet(ObjectID) (*Wallet, error)
	PutWallet(*Wallet) error
	DeleteWallet(ObjectID) error

	GetEscrow(ObjectID) (*Escrow, error)
	PutEscrow(*Escrow) error
	DeleteEscrow(ObjectID) error

	GetAdminConfig() (*AdminConfig, error)
	PutAdminConfig(*AdminConfig) error
}

// Ledger is the in-process stand-in for the object ledger's runtime
// guarantee that transactions touching the same shared object are
// serialized. Every entry point that writes a Wallet or Escrow does so
// inside withObject, holding one object's lock for one state transition
// (including its store writes) and releasing it before returning -- none
// of them takes a second object's lock while holding one, matching the "no
// cross-await locking" rule in spec.md §5.
//
// A real deployment on the actual object ledger deletes this file and
// lets the runtime serialize transactions itself; everything else in this
// package is written so that substitution only touches this one type.
type Ledger struct {
	store Store
	clock Clock
	sink  Sink

	locks sync.Map // ObjectID -> *sync.Mutex
}

// NewLedger constructs a Ledger over store, reading time from clock and
// publishing every emitted event to sink.
func NewLedger(store Store, clk Clock, sink Sink) *Ledger {
	if sink == nil {
		sink = NopSink{}
	}
	return &Ledger{store: store, clock: clk, sink: sink}
}

// lockFor returns the mutex guarding id, creating one on first use.
func (l *Ledger) lockFor(id ObjectID) *sync.Mutex {
	v, _ := l.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// withObject serializes fn against every other call on the same id. fn
// must not block and must not itself call back into the Ledger for the
// same id.
func (l *Ledger) withObject(id ObjectID, fn func() error) error {
	mu := l.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (l *Ledger) now() time.Time {
	return l.clock.Now()
}

func (l *Ledger) publish(ev Event) {
	log.Debugf("publishing %T", ev)
	l.sink.Publish(ev)
}
