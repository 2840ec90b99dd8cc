package archive

import "github.com/goshawk-nvr/goshawk/pkg/segdir"

// Metrics receives archive-level instrumentation callbacks.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveOpen records one registry open allocation attempt.
	ObserveOpen(err error)

	// ObserveAttach records one directory attach attempt. On success st is
	// the lifecycle state right after attachment; on failure it is ignored.
	ObserveAttach(st segdir.State, err error)

	// ObserveDetach records one directory handle release, with the state
	// the directory was left in. Every successful attach is matched by
	// exactly one detach.
	ObserveDetach(st segdir.State)
}

// nopMetrics discards all observations.
type nopMetrics struct{}

func (nopMetrics) ObserveOpen(error)                 {}
func (nopMetrics) ObserveAttach(segdir.State, error) {}
func (nopMetrics) ObserveDetach(segdir.State)        {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
