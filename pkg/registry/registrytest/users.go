package registrytest

import (
	"errors"
	"testing"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// runUsersTests runs all user row conformance tests.
func runUsersTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateGeneratesID", func(t *testing.T) { testCreateUserGeneratesID(t, factory) })
	t.Run("DuplicateUsername", func(t *testing.T) { testCreateUserDuplicate(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetUserMissing(t, factory) })
	t.Run("PermissionsRoundTrip", func(t *testing.T) { testUserPermissionsRoundTrip(t, factory) })
	t.Run("UpdatePermissions", func(t *testing.T) { testUpdateUserPermissions(t, factory) })
	t.Run("ListOrderedByUsername", func(t *testing.T) { testListUsersOrdered(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDeleteUser(t, factory) })
}

// createTestUser is a helper that creates a user with the given flags.
func createTestUser(t *testing.T, store registry.Store, username string, perms dirmeta.Permissions) *registry.User {
	t.Helper()

	user := &registry.User{Username: username}
	user.SetPermissions(perms)

	id, err := store.CreateUser(t.Context(), user)
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	if id == "" {
		t.Fatalf("CreateUser(%q) returned an empty ID", username)
	}
	return user
}

// testCreateUserGeneratesID verifies ID generation and field round-trip.
func testCreateUserGeneratesID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	user := createTestUser(t, store, "alice", dirmeta.Permissions{})

	got, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

// testCreateUserDuplicate verifies the duplicate error on username reuse.
func testCreateUserDuplicate(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestUser(t, store, "alice", dirmeta.Permissions{})

	_, err := store.CreateUser(ctx, &registry.User{Username: "alice"})
	if !errors.Is(err, registry.ErrDuplicateUser) {
		t.Errorf("CreateUser() with reused username = %v, want ErrDuplicateUser", err)
	}
}

// testGetUserMissing verifies the not-found error for unknown usernames.
func testGetUserMissing(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.GetUser(t.Context(), "nobody")
	if !errors.Is(err, registry.ErrUserNotFound) {
		t.Errorf("GetUser(nobody) = %v, want ErrUserNotFound", err)
	}
}

// testUserPermissionsRoundTrip verifies that permission flags survive the
// store unchanged. The store must treat the serialized form as opaque.
func testUserPermissionsRoundTrip(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	perms := dirmeta.Permissions{ViewVideo: true, ReadCameraConfigs: true}
	createTestUser(t, store, "alice", perms)

	got, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}

	decoded, err := got.DecodePermissions()
	if err != nil {
		t.Fatalf("DecodePermissions() failed: %v", err)
	}
	if decoded != perms {
		t.Errorf("permissions = %+v, want %+v", decoded, perms)
	}
}

// testUpdateUserPermissions verifies flag replacement and the not-found
// error for unknown users.
func testUpdateUserPermissions(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestUser(t, store, "alice", dirmeta.Permissions{ViewVideo: true})

	want := dirmeta.Permissions{UpdateSignals: true}
	if err := store.UpdateUserPermissions(ctx, "alice", want); err != nil {
		t.Fatalf("UpdateUserPermissions() failed: %v", err)
	}

	got, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	decoded, err := got.DecodePermissions()
	if err != nil {
		t.Fatalf("DecodePermissions() failed: %v", err)
	}
	if decoded != want {
		t.Errorf("permissions = %+v, want %+v", decoded, want)
	}

	err = store.UpdateUserPermissions(ctx, "nobody", want)
	if !errors.Is(err, registry.ErrUserNotFound) {
		t.Errorf("UpdateUserPermissions(nobody) = %v, want ErrUserNotFound", err)
	}
}

// testListUsersOrdered verifies username-ordered listing.
func testListUsersOrdered(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestUser(t, store, "carol", dirmeta.Permissions{})
	createTestUser(t, store, "alice", dirmeta.Permissions{})
	createTestUser(t, store, "bob", dirmeta.Permissions{})

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListUsers() returned %d users, want 3", len(users))
	}

	expected := []string{"alice", "bob", "carol"}
	for i, want := range expected {
		if users[i].Username != want {
			t.Errorf("users[%d].Username = %q, want %q", i, users[i].Username, want)
		}
	}
}

// testDeleteUser verifies removal and the not-found error on repeat.
func testDeleteUser(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	createTestUser(t, store, "alice", dirmeta.Permissions{})

	if err := store.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}

	if _, err := store.GetUser(ctx, "alice"); !errors.Is(err, registry.ErrUserNotFound) {
		t.Errorf("GetUser() after delete = %v, want ErrUserNotFound", err)
	}

	if err := store.DeleteUser(ctx, "alice"); !errors.Is(err, registry.ErrUserNotFound) {
		t.Errorf("DeleteUser() repeat = %v, want ErrUserNotFound", err)
	}
}
