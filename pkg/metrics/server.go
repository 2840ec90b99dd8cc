package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goshawk-nvr/goshawk/internal/logger"
)

// ServerConfig configures the standalone metrics HTTP server.
type ServerConfig struct {
	// Host is the listen address. Empty means all interfaces.
	Host string

	// Port is the TCP port the /metrics endpoint listens on.
	Port int

	// The timeouts guard against slow scrapers. Zero values fall back
	// to defaults.
	ReadTimeout, WriteTimeout, IdleTimeout time.Duration
}

func (sc *ServerConfig) applyDefaults() {
	if sc.Port == 0 {
		sc.Port = 9090
	}
	if sc.ReadTimeout == 0 {
		sc.ReadTimeout = 5 * time.Second
	}
	if sc.WriteTimeout == 0 {
		sc.WriteTimeout = 10 * time.Second
	}
	if sc.IdleTimeout == 0 {
		sc.IdleTimeout = 60 * time.Second
	}
}

// Server serves the /metrics endpoint for Prometheus scrapes.
//
// The server is created in a stopped state. Call Start to begin serving;
// it blocks until the context is cancelled, then shuts down gracefully.
type Server struct {
	srv          *http.Server
	cfg          ServerConfig
	shutdownOnce sync.Once
}

// NewServer creates the metrics HTTP server. It fails when metrics are
// disabled, since there would be nothing to serve.
func NewServer(cfg ServerConfig) (*Server, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, fmt.Errorf("metrics are not enabled; call InitRegistry first")
	}
	cfg.applyDefaults()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg: cfg,
	}, nil
}

// Start starts the metrics server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", logger.Int("port", s.cfg.Port))
		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errc <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		// The cancelled context would abort the shutdown immediately, so
		// the drain runs on its own deadline.
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(drainCtx)
	case err := <-errc:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.srv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("metrics server shutdown: %w", err)
		} else {
			logger.Debug("metrics server stopped")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int { return s.cfg.Port }
