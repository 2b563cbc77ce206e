package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/fusionswap/escrowd/escrow"
	"github.com/fusionswap/escrowd/eventbus"
	"github.com/fusionswap/escrowd/healthmon"
	"github.com/fusionswap/escrowd/metrics"
	"github.com/fusionswap/escrowd/rescuescan"
	"github.com/fusionswap/escrowd/store"
	"github.com/jrick/logrotate/rotator"
)

// backendLog is the logging backend every subsystem logger below is
// spun off from. It's not set up until initLogRotator has been called.
var backendLog = btclog.NewBackend(logWriter{})

// logWriter implements io.Writer so a rotating file plus stdout can both
// receive every log line written through backendLog.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var logRotator *rotator.Rotator

// Loggers per subsystem, following the teacher's ltndLog/srvrLog/rpcsLog
// convention: one short, grep-friendly name per package that logs.
var (
	ltndLog = backendLog.Logger("ESRD")
	ldgrLog = backendLog.Logger("LDGR")
	strLog  = backendLog.Logger("STOR")
	busLog  = backendLog.Logger("EBUS")
	scnLog  = backendLog.Logger("SCAN")
	mtrLog  = backendLog.Logger("MTRC")
	hckLog  = backendLog.Logger("HLTH")
	rpcsLog = backendLog.Logger("RPCS")
)

// subsystemLoggers maps each subsystem's short tag to the logger that
// backs it, so SetLogLevels can drive them all from one config value.
var subsystemLoggers = map[string]btclog.Logger{
	"ESRD": ltndLog,
	"LDGR": ldgrLog,
	"STOR": strLog,
	"EBUS": busLog,
	"SCAN": scnLog,
	"MTRC": mtrLog,
	"HLTH": hckLog,
	"RPCS": rpcsLog,
}

func init() {
	escrow.UseLogger(ldgrLog)
	store.UseLogger(strLog)
	eventbus.UseLogger(busLog)
	rescuescan.UseLogger(scnLog)
	metrics.UseLogger(mtrLog)
	healthmon.UseLogger(hckLog)
}

// initLogRotator opens and sets the log rotator to write logs to
// logFile and create roll files in the same directory. It must be called
// before the log rotation has been initialized with a log file.
func initLogRotator(logFile string, maxLogFileSize int, maxLogFiles int) error {
	r, err := rotator.New(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// setLogLevels sets the logging level for every registered subsystem.
// Invalid levels are ignored, matching lnd's own permissive parseAndSetDebugLevels.
func setLogLevels(levelStr string) {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
