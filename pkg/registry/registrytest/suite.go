package registrytest

import (
	"testing"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// StoreFactory creates a fresh registry store instance for each test.
// The factory receives *testing.T so it can use t.TempDir() for stores
// that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) registry.Store

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory. Each test gets a fresh store instance to ensure
// isolation.
//
// The suite covers four categories:
//   - Identity: stable database UUID generation
//   - Opens: allocation monotonicity, completion idempotence, listing order
//   - Directories: CRUD, uniqueness of UUID and path, last-complete handoff
//   - Users: CRUD and opaque permission flag round-trips
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("Identity", func(t *testing.T) {
		runIdentityTests(t, factory)
	})

	t.Run("Opens", func(t *testing.T) {
		runOpensTests(t, factory)
	})

	t.Run("Directories", func(t *testing.T) {
		runDirectoriesTests(t, factory)
	})

	t.Run("Users", func(t *testing.T) {
		runUsersTests(t, factory)
	})
}

// runIdentityTests runs all database identity conformance tests.
func runIdentityTests(t *testing.T, factory StoreFactory) {
	t.Run("DatabaseIDStable", func(t *testing.T) { testDatabaseIDStable(t, factory) })
}

// testDatabaseIDStable verifies that the database UUID is generated once and
// then returned unchanged on every subsequent call.
func testDatabaseIDStable(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	first, err := store.DatabaseID(ctx)
	if err != nil {
		t.Fatalf("DatabaseID() failed: %v", err)
	}
	if first == uuid.Nil {
		t.Fatal("DatabaseID() returned the zero UUID")
	}

	second, err := store.DatabaseID(ctx)
	if err != nil {
		t.Fatalf("DatabaseID() second call failed: %v", err)
	}
	if second != first {
		t.Errorf("DatabaseID() = %s on second call, want %s", second, first)
	}
}
