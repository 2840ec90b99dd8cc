package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The gate is process-wide, so this test runs before any other test in
// the package opens it. Tests must not run shuffled.
func TestRegistryGate(t *testing.T) {
	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")

	InitRegistry()
	assert.True(t, IsEnabled())
	reg := GetRegistry()
	require.NotNil(t, reg)

	// A second call keeps the original registry.
	InitRegistry()
	assert.Same(t, reg, GetRegistry())
}
