package main

import (
	"os"
	"os/signal"
	"sync"
)

var (
	shutdownChannel = make(chan struct{})

	interruptHandlersOnce sync.Once
	interruptCallbacks    []func()
)

// addInterruptHandler adds a handler to be called when a SIGINT
// (Ctrl+C) is received. Handlers run in the reverse order they were
// added, the same LIFO order the teacher daemon tears its own
// subsystems down in.
func addInterruptHandler(handler func()) {
	interruptCallbacks = append(interruptCallbacks, handler)
}

// listenForInterrupt starts a goroutine that waits for an OS interrupt
// signal, runs every registered handler, and then closes shutdownChannel
// so escrowdMain's blocking wait returns.
func listenForInterrupt() {
	interruptHandlersOnce.Do(func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt)

		go func() {
			<-sigChan
			ltndLog.Infof("received interrupt signal, shutting down...")

			for i := len(interruptCallbacks) - 1; i >= 0; i-- {
				interruptCallbacks[i]()
			}

			close(shutdownChannel)
		}()
	})
}
