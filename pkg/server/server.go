// Package server runs the telemetry HTTP endpoint of the tab graph tools:
// Prometheus metrics plus health and readiness reports.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-tabgraph/pkg/health"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
)

// DefaultShutdownTimeout bounds how long in-flight scrapes may take once the
// server is asked to stop.
const DefaultShutdownTimeout = 5 * time.Second

// ReloadFunc reloads configuration on request.
type ReloadFunc func() error

// Server wraps an http.Server with context driven shutdown.
type Server struct {
	server *http.Server
	logger logging.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
}

// NewMux routes /metrics to reg and the health endpoints to checker.
func NewMux(reg *metrics.Registry, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.Handle("/healthz", checker.HTTPHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	return mux
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:     logging.OrDefault(logger).With(logging.Component("telemetry")),
		shutdownCh: make(chan struct{}),
	}
}

// Serve listens on the configured address until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Shutdown(DefaultShutdownTimeout); err != nil {
				s.logger.Warn("Telemetry shutdown incomplete", logging.Error(err))
			}
		case <-stopped:
		}
	}()

	s.logger.Info("Telemetry listening", logging.String("addr", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits up to timeout for in-flight
// ones.
func (s *Server) Shutdown(timeout time.Duration) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err = s.server.Shutdown(ctx)
		s.logger.Info("Telemetry server stopped")
	})
	return err
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *Server) IsShuttingDown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// SetReloadFunc sets the function Reload calls.
func (s *Server) SetReloadFunc(fn ReloadFunc) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.reloadFn = fn
}

// Reload runs the reload function, if any.
func (s *Server) Reload() error {
	s.reloadMu.RLock()
	fn := s.reloadFn
	s.reloadMu.RUnlock()

	if fn == nil {
		s.logger.Debug("Reload requested without a reload function")
		return nil
	}
	if err := fn(); err != nil {
		s.logger.Warn("Configuration reload failed", logging.Error(err))
		return err
	}
	s.logger.Info("Configuration reloaded")
	return nil
}
