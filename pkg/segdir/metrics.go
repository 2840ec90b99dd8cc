package segdir

import "time"

// Metrics receives instrumentation callbacks from directory handles.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveRewrite records one sidecar rewrite attempt.
	ObserveRewrite(d time.Duration, err error)

	// ObserveTransition records one lifecycle transition attempt.
	ObserveTransition(from, to State, err error)
}

// nopMetrics discards all observations.
type nopMetrics struct{}

func (nopMetrics) ObserveRewrite(time.Duration, error)   {}
func (nopMetrics) ObserveTransition(State, State, error) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
