package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goshawk-nvr/goshawk/pkg/api"
	"github.com/goshawk-nvr/goshawk/pkg/metrics"
)

func init() {
	metrics.RegisterAPIMetricsConstructor(NewAPIMetrics)
}

// apiMetrics is the Prometheus implementation of api.Metrics.
type apiMetrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
}

// NewAPIMetrics creates a new Prometheus-backed api.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAPIMetrics() api.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return sharedAPIMetrics()
}

var (
	apiOnce   sync.Once
	apiShared *apiMetrics
)

func sharedAPIMetrics() *apiMetrics {
	apiOnce.Do(func() {
		apiShared = newAPIMetrics(metrics.GetRegistry())
	})
	return apiShared
}

func newAPIMetrics(reg *prometheus.Registry) *apiMetrics {
	return &apiMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goshawk_api_requests_total",
				Help: "Total number of API requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "goshawk_api_request_duration_milliseconds",
				Help: "Duration of API request handling in milliseconds",
				Buckets: []float64{
					1,    // 1ms - health probes
					5,    // 5ms
					10,   // 10ms - single registry lookups
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms - status scans across directories
					1000, // 1s
					5000, // 5s
				},
			},
			[]string{"method", "route"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goshawk_api_requests_in_flight",
				Help: "Current number of API requests being served",
			},
			[]string{"method"},
		),
	}
}

// RecordRequest implements api.Metrics.
func (m *apiMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds() * 1000)
}

// RecordRequestStart implements api.Metrics.
func (m *apiMetrics) RecordRequestStart(method string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(method).Inc()
}

// RecordRequestEnd implements api.Metrics.
func (m *apiMetrics) RecordRequestEnd(method string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(method).Dec()
}
