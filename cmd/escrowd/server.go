package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/fusionswap/escrowd/eventbus"
	"github.com/fusionswap/escrowd/healthmon"
	"github.com/fusionswap/escrowd/metrics"
	"github.com/fusionswap/escrowd/rescuescan"
	"github.com/fusionswap/escrowd/store"
	"github.com/lightningnetwork/lnd/clock"
)

const adminRootKeyFilename = "admin.key"

// daemon bundles every ambient component (A1-A7) plus the Ledger they
// surround, the same grouping lnd.go's lndMain assembles before starting
// the server.
type daemon struct {
	db       *store.DB
	bus      *eventbus.Bus
	ledger   *escrow.Ledger
	scanner  *rescuescan.Scanner
	metrics  *metrics.Collector
	health   *healthmon.Monitor
	rpc      *rpcServer
}

func newDaemon(cfg *config) (*daemon, error) {
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}

	rootKey, err := loadOrCreateAdminRootKey(cfg.MacaroonDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to load admin root key: %w", err)
	}
	auth := escrow.NewAdminAuthorizer(rootKey)

	bus := eventbus.New()
	clk := clock.NewDefaultClock()
	ledger := escrow.NewLedger(db, clk, bus)

	scanner := rescuescan.New(db, ledger, bus, clk, cfg.RescueInterval)

	mtr := metrics.New()

	hm := healthmon.New(db, healthmon.DefaultConfig())

	rpc := newRPCServer(ledger, auth)

	if _, err := ledger.AdminConfigSnapshot(); err != nil {
		db.Close()
		return nil, err
	}
	if err := seedAdminConfig(db, ledger, auth, cfg); err != nil {
		db.Close()
		return nil, err
	}

	return &daemon{
		db:      db,
		bus:     bus,
		ledger:  ledger,
		scanner: scanner,
		metrics: mtr,
		health:  hm,
		rpc:     rpc,
	}, nil
}

// seedAdminConfig writes cfg's rescue delay and minimum safety deposit
// into AdminConfig on first run only -- an AdminConfig already persisted
// is never overwritten by a later restart's flag values.
func seedAdminConfig(db *store.DB, ledger *escrow.Ledger, auth *escrow.AdminAuthorizer, cfg *config) error {
	existing, err := db.GetAdminConfig()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	m, err := auth.Bake()
	if err != nil {
		return err
	}

	return ledger.UpdateAdminConfig(auth, m, escrow.AdminConfig{
		RescueDelay:      cfg.RescueDelay,
		MinSafetyDeposit: cfg.MinSafetyDeposit,
	})
}

func loadOrCreateAdminRootKey(macaroonDir string) ([]byte, error) {
	path := filepath.Join(macaroonDir, adminRootKeyFilename)

	if key, err := os.ReadFile(path); err == nil {
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, err
	}
	return key, nil
}

func (d *daemon) Start(cfg *config) error {
	d.bus.Start()
	d.scanner.Start()

	sub, unsubscribe := d.bus.Subscribe()
	go d.metrics.Run(sub)

	if err := d.health.Start(); err != nil {
		return fmt.Errorf("unable to start health monitor: %w", err)
	}

	if err := d.rpc.Start("tcp", cfg.RPCListener); err != nil {
		return fmt.Errorf("unable to start rpc listener: %w", err)
	}
	rpcsLog.Infof("control protocol listening on %s", cfg.RPCListener)

	addInterruptHandler(func() {
		unsubscribe()
		d.metrics.Stop()
	})
	addInterruptHandler(func() { d.rpc.Stop() })
	addInterruptHandler(func() { d.health.Stop() })
	addInterruptHandler(func() { d.scanner.Stop() })
	addInterruptHandler(func() { d.bus.Stop() })
	addInterruptHandler(func() { d.db.Close() })

	return nil
}

