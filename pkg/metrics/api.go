package metrics

import "github.com/goshawk-nvr/goshawk/pkg/api"

// NewAPIMetrics creates a Prometheus-backed api.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// The API server treats a nil instrument as a no-op, so disabled
// metrics cost nothing per request.
func NewAPIMetrics() api.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusAPIMetrics()
}

// newPrometheusAPIMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusAPIMetrics func() api.Metrics

// RegisterAPIMetricsConstructor registers the Prometheus API metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterAPIMetricsConstructor(constructor func() api.Metrics) {
	newPrometheusAPIMetrics = constructor
}
