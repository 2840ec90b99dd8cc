//go:build integration

package gorm

import (
	"testing"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/registry/registrytest"
)

// TestConformanceSQLite runs the shared registry conformance suite against
// the in-memory SQLite backend. Every factory call opens a brand-new
// database, so tests are fully isolated.
func TestConformanceSQLite(t *testing.T) {
	registrytest.RunConformanceSuite(t, func(t *testing.T) registry.Store {
		return newTestStore(t)
	})
}
