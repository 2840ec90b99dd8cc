package gorm

import (
	"context"
	"fmt"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// CreateUser creates a user row. A missing ID is replaced with a freshly
// generated UUID. Usernames must be unique.
func (s *Store) CreateUser(ctx context.Context, user *registry.User) (string, error) {
	if user.Username == "" {
		return "", fmt.Errorf("username is required")
	}
	user.EnsureID()

	if err := insert(ctx, s.db, user, registry.ErrDuplicateUser); err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetUser looks up a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*registry.User, error) {
	return findByField[registry.User](ctx, s.db, "username", username, registry.ErrUserNotFound)
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*registry.User, error) {
	return findAll[registry.User](ctx, s.db, "username ASC")
}

// UpdateUserPermissions replaces the user's permission flags. The flags are
// stored in serialized form exactly as given; the registry never interprets
// them.
func (s *Store) UpdateUserPermissions(ctx context.Context, username string, perms dirmeta.Permissions) error {
	result := s.db.WithContext(ctx).
		Model(&registry.User{}).
		Where("username = ?", username).
		Update("permissions", perms.Marshal())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return registry.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user by username.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	return deleteByField[registry.User](ctx, s.db, "username", username, registry.ErrUserNotFound)
}
