package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goshawk-nvr/goshawk/pkg/metrics"
	badgerstore "github.com/goshawk-nvr/goshawk/pkg/registry/badger"
)

func init() {
	metrics.RegisterBadgerCacheMetricsConstructor(NewBadgerCacheMetrics)
}

// badgerMetrics is the Prometheus implementation of the badger store's
// CacheMetrics. The store pushes cumulative counter samples; this side
// turns them into Prometheus counters by tracking the advance between
// samples.
type badgerMetrics struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	hitRatio *prometheus.GaugeVec

	mu         sync.Mutex
	lastHits   map[string]uint64
	lastMisses map[string]uint64
}

// NewBadgerCacheMetrics creates a new Prometheus-backed badger cache
// metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBadgerCacheMetrics() badgerstore.CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return sharedBadgerMetrics()
}

var (
	badgerOnce   sync.Once
	badgerShared *badgerMetrics
)

func sharedBadgerMetrics() *badgerMetrics {
	badgerOnce.Do(func() {
		badgerShared = newBadgerMetrics(metrics.GetRegistry())
	})
	return badgerShared
}

func newBadgerMetrics(reg *prometheus.Registry) *badgerMetrics {
	return &badgerMetrics{
		hits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goshawk_registry_badger_cache_hits_total",
				Help: "Total number of badger registry cache hits by cache",
			},
			[]string{"cache"}, // "block", "index"
		),
		misses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goshawk_registry_badger_cache_misses_total",
				Help: "Total number of badger registry cache misses by cache",
			},
			[]string{"cache"},
		),
		hitRatio: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goshawk_registry_badger_cache_hit_ratio",
				Help: "Badger registry cache hit ratio (0.0 to 1.0) by cache",
			},
			[]string{"cache"},
		),
		lastHits:   make(map[string]uint64),
		lastMisses: make(map[string]uint64),
	}
}

// RecordCacheStats implements badger's CacheMetrics.
func (m *badgerMetrics) RecordCacheStats(cache string, hits, misses uint64, ratio float64) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits.WithLabelValues(cache).Add(float64(advance(m.lastHits, cache, hits)))
	m.misses.WithLabelValues(cache).Add(float64(advance(m.lastMisses, cache, misses)))
	m.hitRatio.WithLabelValues(cache).Set(ratio)
}

// advance returns how far a cumulative source counter moved since the
// previous sample and remembers the new value. A backwards move means the
// store was reopened and its counters restarted; the new value is the
// whole advance then.
func advance(last map[string]uint64, cache string, v uint64) uint64 {
	prev := last[cache]
	last[cache] = v
	if v < prev {
		return v
	}
	return v - prev
}
