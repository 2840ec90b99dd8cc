package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// CreateDirectory registers a storage directory. A zero UUID is replaced
// with a freshly generated one. Both the UUID and the path must be unique.
func (s *Store) CreateDirectory(ctx context.Context, dir *registry.Directory) (uuid.UUID, error) {
	if dir.Path == "" {
		return uuid.Nil, fmt.Errorf("directory path is required")
	}
	if dir.UUID == uuid.Nil {
		dir.UUID = uuid.New()
	}

	if err := insert(ctx, s.db, dir, registry.ErrDuplicateDirectory); err != nil {
		return uuid.Nil, err
	}
	return dir.UUID, nil
}

// GetDirectory retrieves a directory by UUID.
func (s *Store) GetDirectory(ctx context.Context, id uuid.UUID) (*registry.Directory, error) {
	return findByField[registry.Directory](ctx, s.db, "uuid", id, registry.ErrDirectoryNotFound)
}

// ListDirectories returns all registered directories ordered by path.
func (s *Store) ListDirectories(ctx context.Context) ([]*registry.Directory, error) {
	return findAll[registry.Directory](ctx, s.db, "path ASC")
}

// SetDirectoryLastComplete records the ID of the last open the directory
// completed. This must be durable before the directory's own sidecar
// advances, so a crash between the two leaves the registry ahead of the
// sidecar, never behind.
func (s *Store) SetDirectoryLastComplete(ctx context.Context, id uuid.UUID, openID uint32) error {
	result := s.db.WithContext(ctx).
		Model(&registry.Directory{}).
		Where("uuid = ?", id).
		Update("last_complete_open_id", openID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return registry.ErrDirectoryNotFound
	}
	return nil
}

// DeleteDirectory removes a directory row. The caller is responsible for
// tearing down the on-disk directory first.
func (s *Store) DeleteDirectory(ctx context.Context, id uuid.UUID) error {
	return deleteByField[registry.Directory](ctx, s.db, "uuid", id, registry.ErrDirectoryNotFound)
}
