package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// DatabaseID returns the registry database's stable identity, generating and
// persisting one on first use. The singleton row's primary key arbitrates
// concurrent first calls: the loser of the insert race reads the winner's
// value, so every caller observes the same UUID forever after.
func (s *Store) DatabaseID(ctx context.Context) (uuid.UUID, error) {
	var meta registry.Meta
	err := s.db.WithContext(ctx).First(&meta, "id = ?", 1).Error
	if err == nil {
		return meta.DatabaseUUID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}

	meta = registry.Meta{ID: 1, DatabaseUUID: uuid.New()}
	if err := s.db.WithContext(ctx).Create(&meta).Error; err != nil {
		if !isUniqueViolation(err) {
			return uuid.Nil, err
		}
		// Lost the race; another instance persisted first.
		if err := s.db.WithContext(ctx).First(&meta, "id = ?", 1).Error; err != nil {
			return uuid.Nil, err
		}
	}
	return meta.DatabaseUUID, nil
}
