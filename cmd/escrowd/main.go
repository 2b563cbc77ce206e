package main

import (
	"fmt"
	"os"
	"runtime"
)

// escrowdMain is the true entry point for escrowd. It's required since
// defers created in the top-level scope of a main method aren't executed
// if os.Exit is called.
func escrowdMain() error {
	loadedConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loadedConfig

	if err := initLogRotator(
		cfg.LogDir+string(os.PathSeparator)+defaultLogFilename,
		10, 3,
	); err != nil {
		return fmt.Errorf("unable to init log rotator: %w", err)
	}
	setLogLevels(cfg.LogLevel)

	ltndLog.Infof("starting escrowd, data_dir=%s", cfg.DataDir)

	d, err := newDaemon(cfg)
	if err != nil {
		ltndLog.Errorf("unable to initialize daemon: %v", err)
		return err
	}

	listenForInterrupt()

	if err := d.Start(cfg); err != nil {
		ltndLog.Errorf("unable to start daemon: %v", err)
		return err
	}
	addInterruptHandler(func() {
		ltndLog.Infof("escrowd shutting down")
	})

	<-shutdownChannel
	ltndLog.Infof("shutdown complete")
	return nil
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := escrowdMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
