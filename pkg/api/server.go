package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// Server hosts the REST API.
//
// Routes:
//   - GET /health: liveness probe
//   - GET /health/ready: readiness probe
//   - GET /api/v1/directories: Storage directory listing
//   - GET /api/v1/directories/{uuid}: Single directory detail
//   - GET /api/v1/opens: Database open history
//
// Shutdown is graceful, bounded by the caller's context deadline.
type Server struct {
	srv          *http.Server
	cfg          Config
	shutdownOnce sync.Once
}

// Option configures optional server collaborators.
type Option func(*serverOptions)

type serverOptions struct {
	metrics Metrics
}

// WithMetrics installs request metrics collection on the server's router.
func WithMetrics(m Metrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// NewServer builds the API HTTP server in a stopped state; call Start to
// begin serving.
//
// applyDefaults runs again here so a Server constructed directly in tests
// behaves like one built from a loaded config.
//
// Either arch or store may be nil; the affected endpoints degrade to
// unhealthy or empty answers instead of panicking.
func NewServer(cfg Config, arch *archive.Archive, store registry.Store, opts ...Option) *Server {
	cfg.applyDefaults()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      NewRouter(arch, store, o.metrics),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg: cfg,
	}
}

// Start runs the API server until the context is cancelled or the
// listener fails.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns nil once the drain finishes.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("api server listening", logger.Int("port", s.cfg.Port))

		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errc <- err:
			default:
				// Start already returned via ctx.Done, nobody reads the error.
			}
		}
	}()

	select {
	case <-ctx.Done():
		// Don't use the cancelled ctx for the drain, it would abort the
		// shutdown immediately.
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(drainCtx)
	case err := <-errc:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop drains in-flight requests and closes the listener.
//
// Safe to call multiple times and concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.srv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("api server shutdown: %w", err)
		} else {
			logger.Debug("api server stopped")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int { return s.cfg.Port }
