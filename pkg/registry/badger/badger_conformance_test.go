//go:build integration

package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/registry/badger"
	"github.com/goshawk-nvr/goshawk/pkg/registry/registrytest"
)

func TestConformance(t *testing.T) {
	registrytest.RunConformanceSuite(t, func(t *testing.T) registry.Store {
		dbPath := filepath.Join(t.TempDir(), "registry.db")
		store, err := badger.New(dbPath, nil)
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		t.Cleanup(func() {
			store.Close()
		})
		return store
	})
}

// TestOpenIDsSurviveReopen verifies that the persisted sequence keeps IDs
// monotonic across close/reopen cycles, including the leased-but-unused
// window.
func TestOpenIDsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	store, err := badger.New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	first, err := store.AllocateOpen(ctx)
	if err != nil {
		t.Fatalf("AllocateOpen() failed: %v", err)
	}
	dbID, err := store.DatabaseID(ctx)
	if err != nil {
		t.Fatalf("DatabaseID() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := badger.New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() after close failed: %v", err)
	}
	t.Cleanup(func() {
		reopened.Close()
	})

	second, err := reopened.AllocateOpen(ctx)
	if err != nil {
		t.Fatalf("AllocateOpen() after reopen failed: %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("open id after reopen = %d, want > %d", second.ID, first.ID)
	}

	dbIDAgain, err := reopened.DatabaseID(ctx)
	if err != nil {
		t.Fatalf("DatabaseID() after reopen failed: %v", err)
	}
	if dbIDAgain != dbID {
		t.Errorf("database id after reopen = %s, want %s", dbIDAgain, dbID)
	}

	opens, err := reopened.ListOpens(ctx)
	if err != nil {
		t.Fatalf("ListOpens() failed: %v", err)
	}
	if len(opens) != 2 {
		t.Fatalf("ListOpens() returned %d opens, want 2", len(opens))
	}
}
