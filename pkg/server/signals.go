package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
)

// HandleSignals cancels on SIGINT or SIGTERM and calls Reload on SIGHUP. It
// returns once ctx is done.
func (s *Server) HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				s.logger.Info("Received SIGHUP, reloading configuration")
				_ = s.Reload()
			default:
				s.logger.Info("Received shutdown signal", logging.String("signal", sig.String()))
				cancel()
				return
			}
		}
	}
}
