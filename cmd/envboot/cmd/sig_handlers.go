// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
//
// Cancellation kills the package manager and interrupts the download or the extraction.
func signalContext(parent context.Context, logger func() *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signalChan)
		select {
		case sig := <-signalChan:
			logger().Warn("received signal, interrupting", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
