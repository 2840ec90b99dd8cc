package metrics

import "github.com/goshawk-nvr/goshawk/pkg/archive"

// NewArchiveMetrics creates a Prometheus-backed archive.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
//
// The archive instruments share the directory state gauge with the
// instruments returned by NewDirMetrics: attaches and detaches move the
// gauge at the edges, lifecycle transitions move it in between.
func NewArchiveMetrics() archive.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusArchiveMetrics()
}

// newPrometheusArchiveMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusArchiveMetrics func() archive.Metrics

// RegisterArchiveMetricsConstructor registers the Prometheus archive
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterArchiveMetricsConstructor(constructor func() archive.Metrics) {
	newPrometheusArchiveMetrics = constructor
}
