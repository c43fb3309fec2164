package pipeline

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SetupSignalHandler returns a context derived from parent that is cancelled
// on SIGTERM or SIGINT, after calling shutdownFunc. A second signal exits.
func SetupSignalHandler(parent context.Context, logger zerolog.Logger, shutdownFunc func(context.Context)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("shutting down, finishing current table")
		case <-ctx.Done():
			signal.Stop(sigCh)
			return
		}

		if shutdownFunc != nil {
			shutdownFunc(ctx)
		}
		cancel()

		sig := <-sigCh
		logger.Error().Str("signal", sig.String()).Msg("second signal, forcing exit")
		os.Exit(1)
	}()

	return ctx, cancel
}
