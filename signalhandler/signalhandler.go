package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"raycheck/logging"
)

// exit is replaced in tests
var exit = os.Exit

// NotifyContext returns a context cancelled by the first SIGINT or SIGTERM.
// The run then winds down and reports what it has; a second signal exits
// immediately with status 130. stop releases the handler.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info("Received %s, writing existing results to file", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case <-sigChan:
			logging.Fatal("Received second interrupt, exiting without report")
			exit(130)
		case <-done:
		}
	}()

	stop := func() {
		signal.Stop(sigChan)
		select {
		case <-done:
		default:
			close(done)
		}
		cancel()
	}
	return ctx, stop
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// Get the number of CPUs available
	numCPU := runtime.NumCPU()

	// Every worker also drives an external renderer process
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
