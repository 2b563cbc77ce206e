package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/fusionswap/escrowd/escrow"
)

const (
	defaultConfigFilename  = "escrowd.conf"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogFilename     = "escrowd.log"
	defaultRPCPort         = 10019
	defaultRescueInterval  = 5 * time.Minute
	defaultRescueDelay     = 7 * 24 * time.Hour
	defaultMinSafetyDeposit = escrow.DefaultMinSafetyDeposit
)

var (
	cfg *config

	defaultEscrowdDir = cleanAndExpandPath("~/.escrowd")
	defaultConfigFile = filepath.Join(defaultEscrowdDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultEscrowdDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultEscrowdDir, "logs")
)

// config holds every knob escrowd reads at startup, populated first from
// escrowd.conf and then overridden by whatever flags were passed on the
// command line -- the same two-pass load loadConfig performs in the
// teacher daemon.
type config struct {
	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	DataDir    string `long:"datadir" description:"The directory to store escrowd's database in"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	LogLevel   string `long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`

	RPCListener string `long:"rpclisten" description:"Address to listen for the admin control protocol on"`
	MacaroonDir string `long:"macaroondir" description:"Directory to store the baked admin macaroon in"`

	RescueInterval  time.Duration  `long:"rescueinterval" description:"How often the background scanner checks for rescuable objects"`
	RescueDelay     time.Duration  `long:"rescuedelay" description:"How long an object must sit Active before it becomes rescuable"`
	MinSafetyDeposit escrow.Balance `long:"minsafetydeposit" description:"The smallest safety deposit CreateEscrowSrc/Dst will accept"`

	Profile string `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65535"`
}

// defaultConfig returns a config populated with every default value, the
// starting point loadConfig parses flags on top of.
func defaultConfig() config {
	return config{
		ConfigFile:       defaultConfigFile,
		DataDir:          defaultDataDir,
		LogDir:           defaultLogDir,
		LogLevel:         defaultLogLevel,
		RPCListener:      fmt.Sprintf("localhost:%d", defaultRPCPort),
		MacaroonDir:      defaultEscrowdDir,
		RescueInterval:   defaultRescueInterval,
		RescueDelay:      defaultRescueDelay,
		MinSafetyDeposit: defaultMinSafetyDeposit,
	}
}

// loadConfig reads escrowd.conf if present, then reparses the command
// line on top of it, mirroring lnd's own preCfg/cfg two-pass flags.Parse.
func loadConfig() (*config, error) {
	preCfg := defaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).Parse(); err != nil {
		return nil, err
	}

	cfg := preCfg
	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, err
		}
	}

	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	funcName := "loadConfig"
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.MacaroonDir = cleanAndExpandPath(cfg.MacaroonDir)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("%s: unable to create data directory: %w", funcName, err)
	}
	if err := os.MkdirAll(cfg.MacaroonDir, 0700); err != nil {
		return nil, fmt.Errorf("%s: unable to create macaroon directory: %w", funcName, err)
	}

	return &cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleaning the result. Lifted from the teacher's lncli,
// which in turn borrows it from btcd.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		var homeDir string
		if u, err := user.Current(); err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
