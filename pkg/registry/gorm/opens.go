package gorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// AllocateOpen inserts a new open row and returns its reference. The row ID
// comes from the database sequence (AUTOINCREMENT / identity), so IDs are
// positive, strictly increasing, and never reused even across restarts.
func (s *Store) AllocateOpen(ctx context.Context) (*dirmeta.OpenRef, error) {
	open := &registry.Open{
		UUID: uuid.New(),
	}
	if err := s.db.WithContext(ctx).Create(open).Error; err != nil {
		return nil, fmt.Errorf("failed to allocate open: %w", err)
	}

	ref := open.Ref()
	return &ref, nil
}

// CompleteOpen stamps the open's completion time. Completing an already
// completed open is a no-op that preserves the original timestamp.
func (s *Store) CompleteOpen(ctx context.Context, id uint32) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&registry.Open{}).
		Where("id = ? AND completed_at IS NULL", id).
		Update("completed_at", &now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// No row changed: either the open is already complete (idempotent
	// success) or it never existed.
	if _, err := findByField[registry.Open](ctx, s.db, "id", id, registry.ErrOpenNotFound); err != nil {
		return err
	}
	return nil
}

// GetOpen retrieves an open by ID.
func (s *Store) GetOpen(ctx context.Context, id uint32) (*registry.Open, error) {
	return findByField[registry.Open](ctx, s.db, "id", id, registry.ErrOpenNotFound)
}

// ListOpens returns all opens in ascending ID order (oldest first).
func (s *Store) ListOpens(ctx context.Context) ([]*registry.Open, error) {
	return findAll[registry.Open](ctx, s.db, "id ASC")
}
