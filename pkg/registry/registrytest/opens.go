package registrytest

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// runOpensTests runs all open allocation conformance tests.
func runOpensTests(t *testing.T, factory StoreFactory) {
	t.Run("AllocateMonotonic", func(t *testing.T) { testAllocateMonotonic(t, factory) })
	t.Run("CompleteIdempotent", func(t *testing.T) { testCompleteIdempotent(t, factory) })
	t.Run("CompleteMissing", func(t *testing.T) { testCompleteMissing(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetOpenMissing(t, factory) })
	t.Run("ListAscending", func(t *testing.T) { testListOpensAscending(t, factory) })
}

// testAllocateMonotonic verifies that allocated open IDs are positive and
// strictly increasing, with a distinct UUID per open.
func testAllocateMonotonic(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	seen := make(map[uuid.UUID]bool)
	var lastID uint32
	for i := 0; i < 5; i++ {
		ref, err := store.AllocateOpen(ctx)
		if err != nil {
			t.Fatalf("AllocateOpen() #%d failed: %v", i, err)
		}
		if ref.ID == 0 {
			t.Fatalf("AllocateOpen() #%d returned id 0, want positive", i)
		}
		if ref.ID <= lastID {
			t.Fatalf("AllocateOpen() #%d returned id %d, want > %d", i, ref.ID, lastID)
		}
		if ref.UUID == uuid.Nil {
			t.Fatalf("AllocateOpen() #%d returned the zero UUID", i)
		}
		if seen[ref.UUID] {
			t.Fatalf("AllocateOpen() #%d returned duplicate UUID %s", i, ref.UUID)
		}
		seen[ref.UUID] = true
		lastID = ref.ID
	}
}

// testCompleteIdempotent verifies that completing an open stamps a time once
// and that repeating the call neither fails nor moves the timestamp.
func testCompleteIdempotent(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	ref, err := store.AllocateOpen(ctx)
	if err != nil {
		t.Fatalf("AllocateOpen() failed: %v", err)
	}

	open, err := store.GetOpen(ctx, ref.ID)
	if err != nil {
		t.Fatalf("GetOpen() failed: %v", err)
	}
	if open.Completed() {
		t.Fatal("freshly allocated open reads as completed")
	}

	if err := store.CompleteOpen(ctx, ref.ID); err != nil {
		t.Fatalf("CompleteOpen() failed: %v", err)
	}

	open, err = store.GetOpen(ctx, ref.ID)
	if err != nil {
		t.Fatalf("GetOpen() after complete failed: %v", err)
	}
	if !open.Completed() {
		t.Fatal("open not marked completed")
	}
	stamped := *open.CompletedAt

	if err := store.CompleteOpen(ctx, ref.ID); err != nil {
		t.Fatalf("CompleteOpen() second call failed: %v", err)
	}

	open, err = store.GetOpen(ctx, ref.ID)
	if err != nil {
		t.Fatalf("GetOpen() after second complete failed: %v", err)
	}
	if !open.Completed() {
		t.Fatal("open lost its completion on repeat call")
	}
	if !open.CompletedAt.Equal(stamped) {
		t.Errorf("completed_at moved from %v to %v on repeat call", stamped, *open.CompletedAt)
	}
}

// testCompleteMissing verifies the not-found error for unknown open IDs.
func testCompleteMissing(t *testing.T, factory StoreFactory) {
	store := factory(t)

	err := store.CompleteOpen(t.Context(), 424242)
	if !errors.Is(err, registry.ErrOpenNotFound) {
		t.Errorf("CompleteOpen(424242) = %v, want ErrOpenNotFound", err)
	}
}

// testGetOpenMissing verifies the not-found error for unknown open IDs.
func testGetOpenMissing(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.GetOpen(t.Context(), 424242)
	if !errors.Is(err, registry.ErrOpenNotFound) {
		t.Errorf("GetOpen(424242) = %v, want ErrOpenNotFound", err)
	}
}

// testListOpensAscending verifies that opens list in ascending ID order and
// carry the allocated UUIDs.
func testListOpensAscending(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	want := make(map[uint32]uuid.UUID)
	for i := 0; i < 4; i++ {
		ref, err := store.AllocateOpen(ctx)
		if err != nil {
			t.Fatalf("AllocateOpen() #%d failed: %v", i, err)
		}
		want[ref.ID] = ref.UUID
	}

	opens, err := store.ListOpens(ctx)
	if err != nil {
		t.Fatalf("ListOpens() failed: %v", err)
	}
	if len(opens) != len(want) {
		t.Fatalf("ListOpens() returned %d opens, want %d", len(opens), len(want))
	}

	var lastID uint32
	for i, open := range opens {
		if open.ID <= lastID {
			t.Errorf("opens[%d].ID = %d, want > %d (ascending order)", i, open.ID, lastID)
		}
		lastID = open.ID

		if wantUUID, ok := want[open.ID]; !ok {
			t.Errorf("opens[%d].ID = %d was never allocated", i, open.ID)
		} else if open.UUID != wantUUID {
			t.Errorf("opens[%d].UUID = %s, want %s", i, open.UUID, wantUUID)
		}
		if open.StartedAt.IsZero() {
			t.Errorf("opens[%d].StartedAt is zero", i)
		}
	}
}
