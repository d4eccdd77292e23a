package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appLog "trustcal/internal/log"
)

var version = "0.1.0-dev"

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		appLog.Error("trustcal failed", err)
		os.Exit(1)
	}
}
