package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequest(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	ins := newAPIMetrics(reg)

	ins.RecordRequest("GET", "/api/v1/directories", 200, 4*time.Millisecond)
	ins.RecordRequest("GET", "/api/v1/directories", 200, 2*time.Millisecond)
	ins.RecordRequest("POST", "/api/v1/directories", 409, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(ins.requests.WithLabelValues("GET", "/api/v1/directories", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.requests.WithLabelValues("POST", "/api/v1/directories", "409")))
}

func TestRequestsInFlight(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	ins := newAPIMetrics(reg)

	ins.RecordRequestStart("GET")
	ins.RecordRequestStart("GET")
	assert.Equal(t, float64(2), testutil.ToFloat64(ins.requestsInFlight.WithLabelValues("GET")))

	ins.RecordRequestEnd("GET")
	assert.Equal(t, float64(1), testutil.ToFloat64(ins.requestsInFlight.WithLabelValues("GET")))
}

func TestNilAPIMetrics(t *testing.T) {
	t.Parallel()

	var ins *apiMetrics

	ins.RecordRequest("GET", "/health", 200, time.Millisecond)
	ins.RecordRequestStart("GET")
	ins.RecordRequestEnd("GET")
}

func TestNewAPIMetricsNilWhenDisabled(t *testing.T) {
	assert.Nil(t, NewAPIMetrics())
}
