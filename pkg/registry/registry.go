// Package registry defines the persistence interface for the recorder's
// registry database: the database identity, the history of database opens,
// the registered storage directories, and the users whose permission flags
// ride along with API sessions.
//
// Two backend families implement the interface:
//   - SQL via GORM (SQLite single-node, PostgreSQL HA) in pkg/registry/gorm
//   - BadgerDB key-value in pkg/registry/badger
//
// The conformance suite in pkg/registry/registrytest verifies that every
// backend satisfies the same behavioral contract.
package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// Store is the registry persistence interface.
//
// Thread safety: implementations must be safe for concurrent use from
// multiple goroutines.
type Store interface {
	// DatabaseID returns the UUID identifying this registry database,
	// generating and persisting one on first call. Every later call
	// returns the same value; the identity of a database never changes.
	DatabaseID(ctx context.Context) (uuid.UUID, error)

	// AllocateOpen assigns the next open of the database: a fresh row with
	// a strictly increasing positive ID and a random UUID. IDs are never
	// reused, even across restarts, so comparing two IDs orders the opens
	// they denote.
	AllocateOpen(ctx context.Context) (*dirmeta.OpenRef, error)

	// CompleteOpen marks an open as acknowledged by the database.
	// Idempotent: completing an already-completed open keeps the original
	// completion time. Returns ErrOpenNotFound for unknown IDs.
	CompleteOpen(ctx context.Context, id uint32) error

	// GetOpen returns one open by ID.
	// Returns ErrOpenNotFound if the open doesn't exist.
	GetOpen(ctx context.Context, id uint32) (*Open, error)

	// ListOpens returns all opens ordered by ascending ID.
	ListOpens(ctx context.Context) ([]*Open, error)

	// CreateDirectory registers a storage directory. A zero UUID is
	// replaced with a fresh one; the generated or provided UUID is
	// returned. Returns ErrDuplicateDirectory if the UUID or the path is
	// already registered.
	CreateDirectory(ctx context.Context, dir *Directory) (uuid.UUID, error)

	// GetDirectory returns one directory by UUID.
	// Returns ErrDirectoryNotFound if the directory doesn't exist.
	GetDirectory(ctx context.Context, id uuid.UUID) (*Directory, error)

	// ListDirectories returns all registered directories.
	ListDirectories(ctx context.Context) ([]*Directory, error)

	// SetDirectoryLastComplete records the open a directory last completed.
	// This is the database-side half of the open handshake: it must be
	// durable before the directory's own sidecar advances to stable.
	// Returns ErrDirectoryNotFound if the directory doesn't exist.
	SetDirectoryLastComplete(ctx context.Context, id uuid.UUID, openID uint32) error

	// DeleteDirectory removes a directory registration. Called only after
	// the on-disk teardown finished.
	// Returns ErrDirectoryNotFound if the directory doesn't exist.
	DeleteDirectory(ctx context.Context, id uuid.UUID) error

	// CreateUser creates a user. The ID is generated if empty and
	// returned. Returns ErrDuplicateUser if the username is taken.
	CreateUser(ctx context.Context, user *User) (string, error)

	// GetUser returns a user by username.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, username string) (*User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateUserPermissions replaces a user's permission flags. The flags
	// are stored and served verbatim; the registry never interprets them.
	// Returns ErrUserNotFound if the user doesn't exist.
	UpdateUserPermissions(ctx context.Context, username string, perms dirmeta.Permissions) error

	// DeleteUser deletes a user by username.
	// Returns ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, username string) error

	// Healthcheck verifies the store is operational.
	// Returns an error if the store is not healthy.
	Healthcheck(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
