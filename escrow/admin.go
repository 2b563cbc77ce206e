package escrow

import (
	"time"

	macaroon "gopkg.in/macaroon.v2"
)

// DefaultRescueDelay is the delay spec.md §4.5 names as the default: a
// caller may invoke Rescue on any object that has sat Active for at least
// this long since its deployedAt.
const DefaultRescueDelay = 7 * 24 * time.Hour

// nativeAssetUnit is one whole unit of the chain's native gas asset,
// expressed in the smallest Balance increment (nine decimals, the same
// scale lnd uses for msat-per-sat accounting). DefaultMinSafetyDeposit is
// pinned to a tenth of that, the low end of the 0.1-1 unit range.
const nativeAssetUnit = Balance(1_000_000_000)

// DefaultMinSafetyDeposit is the non-zero floor a freshly initialized
// daemon enforces on every new escrow's safety deposit.
const DefaultMinSafetyDeposit = nativeAssetUnit / 10

// AdminConfig holds the protocol parameters the daemon's admin may tune at
// runtime. MinSafetyDeposit is only checked when an escrow is created, so
// changing it leaves existing escrows as they are. RescueDelay is not
// copied into any object: Rescue and the rescuescan sweep read the value
// current when they run, so a change to it applies to every Wallet and
// Escrow, including those created before the change.
type AdminConfig struct {
	RescueDelay      time.Duration
	MinSafetyDeposit Balance
}

// DefaultAdminConfig returns the configuration a freshly initialized
// daemon starts with.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		RescueDelay:      DefaultRescueDelay,
		MinSafetyDeposit: DefaultMinSafetyDeposit,
	}
}

// adminCaveat is the single identifier this package's admin macaroon is
// minted with. A real deployment could grow a caveat vocabulary (e.g.
// time-bound tokens); one fixed identifier is all AdminConfig mutation
// needs today.
const adminCaveat = "escrowd-admin"

// AdminAuthorizer verifies the single capability token gating AdminConfig
// mutation, the same root-key-then-verify pattern lnd's macaroon-secured
// RPCs use, minus the caveat-checker machinery this package has no need
// for: there is exactly one capability, and it is never dischargeable by
// a third party.
type AdminAuthorizer struct {
	rootKey []byte
}

// NewAdminAuthorizer returns an authorizer holding rootKey, the shared
// secret the daemon mints its admin macaroon against on first run.
func NewAdminAuthorizer(rootKey []byte) *AdminAuthorizer {
	return &AdminAuthorizer{rootKey: rootKey}
}

// Bake mints a fresh admin macaroon bound to this authorizer's root key.
func (a *AdminAuthorizer) Bake() (*macaroon.Macaroon, error) {
	return macaroon.New(a.rootKey, []byte(adminCaveat), "escrowd", macaroon.LatestVersion)
}

// Verify reports whether m is a valid, unexpired admin capability minted
// by this authorizer.
func (a *AdminAuthorizer) Verify(m *macaroon.Macaroon) error {
	if err := m.Verify(a.rootKey, func(caveat string) error {
		if caveat != adminCaveat {
			return newErr(ErrUnauthorised, "unrecognised caveat %q", caveat)
		}
		return nil
	}, nil); err != nil {
		return newErr(ErrUnauthorised, "macaroon verification failed: %v", err)
	}
	return nil
}

// UpdateAdminConfig validates m against auth, then persists cfg as the new
// AdminConfig. It is the only way AdminConfig is ever mutated after the
// daemon's first run.
func (l *Ledger) UpdateAdminConfig(auth *AdminAuthorizer, m *macaroon.Macaroon, cfg AdminConfig) error {
	if err := auth.Verify(m); err != nil {
		return err
	}
	if cfg.RescueDelay <= 0 {
		return newErr(ErrInvalidTimelock, "rescue_delay must be positive")
	}
	if cfg.MinSafetyDeposit < 0 {
		return newErr(ErrInvalidSafetyDeposit, "min_safety_deposit must be non-negative")
	}
	return l.store.PutAdminConfig(&cfg)
}

// AdminConfigSnapshot returns the currently active AdminConfig, or the
// package default if none has been persisted yet.
func (l *Ledger) AdminConfigSnapshot() (AdminConfig, error) {
	cfg, err := l.store.GetAdminConfig()
	if err != nil {
		return AdminConfig{}, err
	}
	if cfg == nil {
		return DefaultAdminConfig(), nil
	}
	return *cfg, nil
}
