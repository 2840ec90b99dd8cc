package metrics

import "github.com/goshawk-nvr/goshawk/pkg/segdir"

// NewDirMetrics creates a Prometheus-backed segdir.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When
// nil is returned, callers should pass nil to directory handles, which
// results in zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	a := archive.New(store, &archive.Options{
//		Metrics:    metrics.NewArchiveMetrics(),
//		DirMetrics: metrics.NewDirMetrics(),
//	})
func NewDirMetrics() segdir.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusDirMetrics()
}

// newPrometheusDirMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusDirMetrics func() segdir.Metrics

// RegisterDirMetricsConstructor registers the Prometheus directory metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterDirMetricsConstructor(constructor func() segdir.Metrics) {
	newPrometheusDirMetrics = constructor
}
