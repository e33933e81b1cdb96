package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// SignalContext returns a context that is cancelled on SIGINT or
// SIGTERM, so a scrape in flight can release its browser cleanly.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}
