package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

// Tests build their own instrument sets against throwaway registries so
// they never touch the process-wide shared instance.

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()

	fams, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range fams {
		if fam.GetName() == name {
			require.Len(t, fam.GetMetric(), 1)
			return fam.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("no histogram named %s", name)
	return 0
}

func newTestInstruments(t *testing.T) (*prometheus.Registry, *instruments) {
	t.Helper()

	r := prometheus.NewRegistry()
	return r, newInstruments(r)
}

func TestObserveRewrite(t *testing.T) {
	t.Parallel()

	reg, ins := newTestInstruments(t)

	ins.ObserveRewrite(3*time.Millisecond, nil)
	ins.ObserveRewrite(time.Millisecond, errors.New("disk full"))

	assert.Equal(t, float64(1), testutil.ToFloat64(ins.rewrites.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.rewrites.WithLabelValues("error")))

	// Both attempts land in the duration histogram, but only the
	// successful one counts toward bytes written.
	assert.Equal(t, uint64(2), histogramSampleCount(t, reg, "goshawk_dir_sidecar_rewrite_duration_milliseconds"))
	assert.Equal(t, float64(dirmeta.BlockSize), testutil.ToFloat64(ins.rewriteBytes))
}

func TestObserveTransitionMovesGauge(t *testing.T) {
	t.Parallel()

	_, ins := newTestInstruments(t)

	ins.ObserveAttach(segdir.StateStable, nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.directories.WithLabelValues("stable")))

	ins.ObserveTransition(segdir.StateStable, segdir.StateOpening, nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(ins.directories.WithLabelValues("stable")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.directories.WithLabelValues("opening")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.transitions.WithLabelValues("stable", "opening", "ok")))

	// A refused transition is counted but leaves the gauge alone.
	ins.ObserveTransition(segdir.StateOpening, segdir.StateDeleting, errors.New("refused"))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.directories.WithLabelValues("opening")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.transitions.WithLabelValues("opening", "deleting", "error")))

	ins.ObserveDetach(segdir.StateOpening)
	assert.Equal(t, float64(0), testutil.ToFloat64(ins.directories.WithLabelValues("opening")))
}

func TestObserveAttachFailure(t *testing.T) {
	t.Parallel()

	_, ins := newTestInstruments(t)

	ins.ObserveAttach(segdir.StateEmpty, errors.New("locked"))

	assert.Equal(t, float64(1), testutil.ToFloat64(ins.attaches.WithLabelValues("error")))
	assert.Equal(t, float64(0), testutil.ToFloat64(ins.directories.WithLabelValues("empty")))
}

func TestObserveOpen(t *testing.T) {
	t.Parallel()

	_, ins := newTestInstruments(t)

	ins.ObserveOpen(nil)
	ins.ObserveOpen(nil)
	ins.ObserveOpen(errors.New("registry down"))

	assert.Equal(t, float64(2), testutil.ToFloat64(ins.opens.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.opens.WithLabelValues("error")))
}

func TestNilInstruments(t *testing.T) {
	t.Parallel()

	var ins *instruments

	// All observers must be safe on a nil receiver.
	ins.ObserveRewrite(time.Millisecond, nil)
	ins.ObserveTransition(segdir.StateEmpty, segdir.StateOpening, nil)
	ins.ObserveOpen(nil)
	ins.ObserveAttach(segdir.StateStable, nil)
	ins.ObserveDetach(segdir.StateStable)
}

func TestConstructorsNilWhenDisabled(t *testing.T) {
	// No test in this package calls metrics.InitRegistry, so the gate
	// stays closed for the whole binary.
	assert.Nil(t, NewDirMetrics())
	assert.Nil(t, NewArchiveMetrics())
}
