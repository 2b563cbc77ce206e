package escrow

import "github.com/btcsuite/btclog"

// log is the package-level subsystem logger, set by the daemon's log.go
// via UseLogger. It defaults to disabled so tests that never call
// UseLogger don't panic on a nil logger.
var log = btclog.Disabled

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
