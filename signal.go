package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownChannel is closed exactly once, the moment a shutdown has been
// requested by either an OS signal or an internal InvariantViolation/
// Fatal error — mirroring the teacher's lnd.go shutdownChannel.
var (
	shutdownChannel = make(chan struct{})
	shutdownOnce    sync.Once
)

// requestShutdown triggers a clean shutdown; safe to call more than
// once and from any goroutine, including an observer's onFatal handler.
func requestShutdown(reason string) {
	shutdownOnce.Do(func() {
		if reason != "" {
			mainLog.Warnf("shutting down: %s", reason)
		}
		close(shutdownChannel)
	})
}

// shutdownContext returns a context cancelled the moment shutdownChannel
// closes, for handing to components that accept context.Context.
func shutdownContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdownChannel
		cancel()
	}()
	return ctx
}

// catchSignals forwards SIGINT/SIGTERM into requestShutdown, so a second
// Ctrl-C during a slow shutdown doesn't need special-casing: the channel
// is already closed and every listener has already been notified.
func catchSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		requestShutdown(sig.String())
	}()
}
