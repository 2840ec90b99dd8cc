package registrytest

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// runDirectoriesTests runs all directory row conformance tests.
func runDirectoriesTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateGeneratesUUID", func(t *testing.T) { testCreateDirGeneratesUUID(t, factory) })
	t.Run("CreateKeepsExplicitUUID", func(t *testing.T) { testCreateDirKeepsExplicitUUID(t, factory) })
	t.Run("DuplicateUUID", func(t *testing.T) { testCreateDirDuplicateUUID(t, factory) })
	t.Run("DuplicatePath", func(t *testing.T) { testCreateDirDuplicatePath(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetDirectoryMissing(t, factory) })
	t.Run("ListOrderedByPath", func(t *testing.T) { testListDirectoriesOrdered(t, factory) })
	t.Run("SetLastComplete", func(t *testing.T) { testSetLastComplete(t, factory) })
	t.Run("DefaultPermissionsOpaque", func(t *testing.T) { testDirPermissionsOpaque(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDeleteDirectory(t, factory) })
}

// createTestDirectory is a helper that registers a directory row.
func createTestDirectory(t *testing.T, store registry.Store, path string) *registry.Directory {
	t.Helper()

	dir := &registry.Directory{Path: path}
	id, err := store.CreateDirectory(t.Context(), dir)
	if err != nil {
		t.Fatalf("CreateDirectory(%q) failed: %v", path, err)
	}
	if id == uuid.Nil {
		t.Fatalf("CreateDirectory(%q) returned the zero UUID", path)
	}
	return dir
}

// testCreateDirGeneratesUUID verifies UUID generation and round-trip of the
// stored fields.
func testCreateDirGeneratesUUID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	dir := createTestDirectory(t, store, "/var/lib/goshawk/media")

	got, err := store.GetDirectory(ctx, dir.UUID)
	if err != nil {
		t.Fatalf("GetDirectory() failed: %v", err)
	}
	if got.Path != "/var/lib/goshawk/media" {
		t.Errorf("Path = %q, want %q", got.Path, "/var/lib/goshawk/media")
	}
	if got.UUID != dir.UUID {
		t.Errorf("UUID = %s, want %s", got.UUID, dir.UUID)
	}
	if got.LastCompleteOpenID != nil {
		t.Errorf("LastCompleteOpenID = %d, want unset", *got.LastCompleteOpenID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

// testCreateDirKeepsExplicitUUID verifies that a caller-chosen UUID is
// stored as given (restores re-register directories under their old
// identity).
func testCreateDirKeepsExplicitUUID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	want := uuid.MustParse("7edcba98-7654-4210-aedc-ba9876543210")
	dir := &registry.Directory{UUID: want, Path: "/srv/media0"}

	got, err := store.CreateDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("CreateDirectory() failed: %v", err)
	}
	if got != want {
		t.Errorf("CreateDirectory() = %s, want %s", got, want)
	}

	stored, err := store.GetDirectory(ctx, want)
	if err != nil {
		t.Fatalf("GetDirectory() failed: %v", err)
	}
	if stored.UUID != want {
		t.Errorf("stored UUID = %s, want %s", stored.UUID, want)
	}
}

// testCreateDirDuplicateUUID verifies the duplicate error when the UUID is
// already registered.
func testCreateDirDuplicateUUID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	dir := createTestDirectory(t, store, "/srv/media0")

	_, err := store.CreateDirectory(ctx, &registry.Directory{UUID: dir.UUID, Path: "/srv/media1"})
	if !errors.Is(err, registry.ErrDuplicateDirectory) {
		t.Errorf("CreateDirectory() with reused UUID = %v, want ErrDuplicateDirectory", err)
	}
}

// testCreateDirDuplicatePath verifies the duplicate error when the path is
// already registered.
func testCreateDirDuplicatePath(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestDirectory(t, store, "/srv/media0")

	_, err := store.CreateDirectory(ctx, &registry.Directory{Path: "/srv/media0"})
	if !errors.Is(err, registry.ErrDuplicateDirectory) {
		t.Errorf("CreateDirectory() with reused path = %v, want ErrDuplicateDirectory", err)
	}
}

// testGetDirectoryMissing verifies the not-found error for unknown UUIDs.
func testGetDirectoryMissing(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.GetDirectory(t.Context(), uuid.New())
	if !errors.Is(err, registry.ErrDirectoryNotFound) {
		t.Errorf("GetDirectory(random) = %v, want ErrDirectoryNotFound", err)
	}
}

// testListDirectoriesOrdered verifies path-ordered listing.
func testListDirectoriesOrdered(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestDirectory(t, store, "/srv/media1")
	createTestDirectory(t, store, "/srv/media0")
	createTestDirectory(t, store, "/srv/media2")

	dirs, err := store.ListDirectories(ctx)
	if err != nil {
		t.Fatalf("ListDirectories() failed: %v", err)
	}
	if len(dirs) != 3 {
		t.Fatalf("ListDirectories() returned %d directories, want 3", len(dirs))
	}

	expected := []string{"/srv/media0", "/srv/media1", "/srv/media2"}
	for i, want := range expected {
		if dirs[i].Path != want {
			t.Errorf("dirs[%d].Path = %q, want %q", i, dirs[i].Path, want)
		}
	}
}

// testSetLastComplete verifies the registry-side half of the open handshake.
func testSetLastComplete(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	dir := createTestDirectory(t, store, "/srv/media0")
	ref, err := store.AllocateOpen(ctx)
	if err != nil {
		t.Fatalf("AllocateOpen() failed: %v", err)
	}

	if err := store.SetDirectoryLastComplete(ctx, dir.UUID, ref.ID); err != nil {
		t.Fatalf("SetDirectoryLastComplete() failed: %v", err)
	}

	got, err := store.GetDirectory(ctx, dir.UUID)
	if err != nil {
		t.Fatalf("GetDirectory() failed: %v", err)
	}
	if got.LastCompleteOpenID == nil {
		t.Fatal("LastCompleteOpenID not set")
	}
	if *got.LastCompleteOpenID != ref.ID {
		t.Errorf("LastCompleteOpenID = %d, want %d", *got.LastCompleteOpenID, ref.ID)
	}

	err = store.SetDirectoryLastComplete(ctx, uuid.New(), ref.ID)
	if !errors.Is(err, registry.ErrDirectoryNotFound) {
		t.Errorf("SetDirectoryLastComplete(random) = %v, want ErrDirectoryNotFound", err)
	}
}

// testDirPermissionsOpaque verifies that default permission blobs are stored
// and returned byte-for-byte.
func testDirPermissionsOpaque(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	perms := dirmeta.Permissions{ViewVideo: true, UpdateSignals: true}
	dir := &registry.Directory{
		Path:               "/srv/media0",
		DefaultPermissions: perms.Marshal(),
	}
	if _, err := store.CreateDirectory(ctx, dir); err != nil {
		t.Fatalf("CreateDirectory() failed: %v", err)
	}

	got, err := store.GetDirectory(ctx, dir.UUID)
	if err != nil {
		t.Fatalf("GetDirectory() failed: %v", err)
	}

	decoded, err := dirmeta.UnmarshalPermissions(got.DefaultPermissions)
	if err != nil {
		t.Fatalf("UnmarshalPermissions() failed: %v", err)
	}
	if decoded != perms {
		t.Errorf("permissions = %+v, want %+v", decoded, perms)
	}
}

// testDeleteDirectory verifies removal and the not-found error on repeat.
func testDeleteDirectory(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	dir := createTestDirectory(t, store, "/srv/media0")

	if err := store.DeleteDirectory(ctx, dir.UUID); err != nil {
		t.Fatalf("DeleteDirectory() failed: %v", err)
	}

	if _, err := store.GetDirectory(ctx, dir.UUID); !errors.Is(err, registry.ErrDirectoryNotFound) {
		t.Errorf("GetDirectory() after delete = %v, want ErrDirectoryNotFound", err)
	}

	if err := store.DeleteDirectory(ctx, dir.UUID); !errors.Is(err, registry.ErrDirectoryNotFound) {
		t.Errorf("DeleteDirectory() repeat = %v, want ErrDirectoryNotFound", err)
	}
}
