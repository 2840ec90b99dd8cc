package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerDefaults(t *testing.T) {
	InitRegistry()

	s, err := NewServer(ServerConfig{})
	require.NoError(t, err)

	assert.Equal(t, 9090, s.Port())
	assert.Equal(t, ":9090", s.srv.Addr)
	assert.Equal(t, 5*time.Second, s.srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.srv.IdleTimeout)
}

func TestMetricsEndpoint(t *testing.T) {
	InitRegistry()

	s, err := NewServer(ServerConfig{Host: "127.0.0.1", Port: 19115})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// The runtime collectors registered by InitRegistry show up on the
	// endpoint without any application instruments.
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsEndpointOnly(t *testing.T) {
	InitRegistry()

	s, err := NewServer(ServerConfig{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStopIdempotent(t *testing.T) {
	InitRegistry()

	s, err := NewServer(ServerConfig{Port: 19116})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
