package metrics

import badgerstore "github.com/goshawk-nvr/goshawk/pkg/registry/badger"

// NewBadgerCacheMetrics creates a Prometheus-backed badger CacheMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A
// badger store opened with a nil sink never starts its sampler.
func NewBadgerCacheMetrics() badgerstore.CacheMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusBadgerCacheMetrics()
}

// newPrometheusBadgerCacheMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusBadgerCacheMetrics func() badgerstore.CacheMetrics

// RegisterBadgerCacheMetricsConstructor registers the Prometheus badger
// cache metrics constructor. Called by pkg/metrics/prometheus during
// package initialization.
func RegisterBadgerCacheMetricsConstructor(constructor func() badgerstore.CacheMetrics) {
	newPrometheusBadgerCacheMetrics = constructor
}
