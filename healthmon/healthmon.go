// Package healthmon wires the daemon's liveness probes through
// lightningnetwork/lnd/healthcheck, the same retry-with-backoff monitor
// lnd.go uses to watch its chain backend and disk space. Here the only
// resource worth watching is the store: if bbolt can no longer round-trip
// a read, the daemon is as good as down.
package healthmon

import (
	"time"

	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/healthcheck"
)

// Store is the subset of store.DB this package depends on.
type Store interface {
	// Ping performs a cheap, side-effect-free round trip against the
	// database, returning an error if it is unreachable or corrupted.
	Ping() error
}

// Config controls how aggressively the store check retries before it is
// reported unhealthy.
type Config struct {
	Interval time.Duration
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// DefaultConfig matches the cadence lnd.go uses for its own chain backend
// check: frequent enough to notice quickly, patient enough to ride out a
// single slow disk flush.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Attempts: 2,
		Timeout:  5 * time.Second,
		Backoff:  30 * time.Second,
	}
}

// UseLogger points the healthcheck package's own logger at log, the same
// subsystem-registration call lnd.go makes for every package that logs on
// its own goroutine.
func UseLogger(log btclog.Logger) {
	healthcheck.UseLogger(log)
}

// Monitor is the healthcheck monitor New returns.
type Monitor = healthcheck.Monitor

// New builds the healthcheck.Monitor that supervises store reachability.
func New(store Store, cfg Config) *healthcheck.Monitor {
	storeCheck := &healthcheck.Observation{
		Name:     "store",
		Check:    func() error { return store.Ping() },
		Interval: cfg.Interval,
		Attempts: cfg.Attempts,
		Timeout:  cfg.Timeout,
		Backoff:  cfg.Backoff,
	}

	return healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{storeCheck},
	})
}
