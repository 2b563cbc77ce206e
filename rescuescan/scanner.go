// Package rescuescan runs the background job that surfaces, but never
// triggers, objects that have become rescuable. It exists purely to
// shorten the time a real caller needs to notice a stuck wallet or
// escrow; invoking escrow.Ledger.Rescue itself always remains a caller's
// own decision.
package rescuescan

import (
	"time"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/lightningnetwork/lnd/ticker"
)

// Lister is the subset of store.DB the scanner depends on. A narrow
// interface here keeps this package testable against a fake without
// importing the bbolt-backed store directly.
type Lister interface {
	ListActiveObjectIDs() ([]escrow.ObjectID, error)
}

// Inspector is the subset of escrow.Ledger the scanner needs to decide
// whether a listed object has actually crossed its rescue delay.
type Inspector interface {
	AdminConfigSnapshot() (escrow.AdminConfig, error)
	DeployedAt(escrow.ObjectID) (time.Time, bool, error)
}

// Scanner periodically lists active objects and emits a RescueCandidate
// event for any whose rescue delay has elapsed since the last time it
// noticed -- it never calls Rescue.
type Scanner struct {
	store  Lister
	ledger Inspector
	sink   escrow.Sink
	clock  escrow.Clock
	ticker ticker.Ticker

	notified map[escrow.ObjectID]struct{}

	quit chan struct{}
}

// New constructs a Scanner that checks in every interval.
func New(store Lister, ledger Inspector, sink escrow.Sink, clock escrow.Clock, interval time.Duration) *Scanner {
	return &Scanner{
		store:    store,
		ledger:   ledger,
		sink:     sink,
		clock:    clock,
		ticker:   ticker.NewForce(interval),
		notified: make(map[escrow.ObjectID]struct{}),
		quit:     make(chan struct{}),
	}
}

// Start runs the scan loop in its own goroutine.
func (s *Scanner) Start() {
	s.ticker.Resume()
	go s.run()
}

// Stop halts the scan loop.
func (s *Scanner) Stop() {
	close(s.quit)
	s.ticker.Stop()
}

func (s *Scanner) run() {
	for {
		select {
		case <-s.ticker.Ticks():
			s.scanOnce()
		case <-s.quit:
			return
		}
	}
}

func (s *Scanner) scanOnce() {
	cfg, err := s.ledger.AdminConfigSnapshot()
	if err != nil {
		log.Errorf("unable to read admin config: %v", err)
		return
	}

	ids, err := s.store.ListActiveObjectIDs()
	if err != nil {
		log.Errorf("unable to list active objects: %v", err)
		return
	}

	now := s.clock.Now()

	for _, id := range ids {
		deployedAt, ok, err := s.ledger.DeployedAt(id)
		if err != nil || !ok {
			continue
		}
		if now.Sub(deployedAt) < cfg.RescueDelay {
			continue
		}
		if _, seen := s.notified[id]; seen {
			continue
		}

		s.notified[id] = struct{}{}
		s.sink.Publish(escrow.NewRescueCandidate(now, id))
		log.Infof("object %s is past its rescue delay", id)
	}
}
