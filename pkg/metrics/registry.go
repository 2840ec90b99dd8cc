// Package metrics provides opt-in Prometheus instrumentation.
//
// Metrics are disabled until InitRegistry is called. The instrument
// constructors (NewDirMetrics, NewArchiveMetrics) return nil while
// disabled, and every consumer treats a nil instrument as a no-op, so
// disabled metrics cost nothing.
//
// The concrete Prometheus instruments live in pkg/metrics/prometheus and
// register themselves through constructor hooks during package
// initialization; the command binary wires them up with a blank import.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry and enables
// metrics collection. Call it before constructing any component that
// should be instrumented. Calling it again is a no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return
	}
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil while metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
