package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/api/handlers"
	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// requestTimeout caps how long any single request may run.
const requestTimeout = 30 * time.Second

// NewRouter assembles the read-only HTTP surface: health probes plus the
// v1 inspection endpoints. Mutations stay in the CLI, which holds the
// archive directly.
//
//	GET /health                     liveness
//	GET /health/ready               readiness (registry reachable)
//	GET /api/v1/directories         storage directory list with live state
//	GET /api/v1/directories/{uuid}  single directory detail
//	GET /api/v1/opens               database open history
//
// Request IDs and client IPs are installed first so the logger and the
// metrics middleware see them; recovery and the request timeout wrap the
// handlers themselves. A nil Metrics skips request instrumentation.
func NewRouter(arch *archive.Archive, store registry.Store, m Metrics) http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID, middleware.RealIP, logRequests)
	if m != nil {
		mux.Use(requestMetrics(m))
	}
	mux.Use(middleware.Recoverer, middleware.Timeout(requestTimeout))

	health := handlers.NewHealthHandler(store, arch)
	mux.Get("/health", health.Liveness)
	mux.Get("/health/ready", health.Readiness)

	// A bare GET / lands on the liveness probe.
	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusFound)
	})

	mux.Route("/api/v1", func(r chi.Router) {
		dirs := handlers.NewDirectoryHandler(arch)
		r.Get("/directories", dirs.List)
		r.Get("/directories/{uuid}", dirs.Get)

		opens := handlers.NewOpenHandler(store)
		r.Get("/opens", opens.List)
	})

	return mux
}

// isProbePath reports whether path belongs to the probe endpoints.
func isProbePath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/health"
}

// routePattern returns the chi pattern that matched the request, falling
// back to the raw path when routing has not resolved one.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// logRequests logs every request completion with method, matched
// route, status, response size and duration.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(rec, r)

		args := []any{
			logger.String(logger.KeyRequestID, middleware.GetReqID(r.Context())),
			logger.String(logger.KeyMethod, r.Method),
			logger.String(logger.KeyRoute, routePattern(r)),
			logger.Int(logger.KeyStatus, rec.Status()),
			logger.String(logger.KeyClientIP, r.RemoteAddr),
			logger.BytesWritten(rec.BytesWritten()),
			logger.DurationMs(logger.Duration(start)),
		}

		// Probe traffic goes to DEBUG so production logs stay readable.
		if isProbePath(r.URL.Path) {
			logger.Debug("request completed", args...)
		} else {
			logger.Info("request completed", args...)
		}
	})
}

// requestMetrics records request counts, durations, and in-flight gauge
// movements on the given Metrics implementation.
func requestMetrics(m Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RecordRequestStart(r.Method)
			defer m.RecordRequestEnd(r.Method)

			rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rec, r)

			m.RecordRequest(r.Method, routePattern(r), rec.Status(), time.Since(start))
		})
	}
}
