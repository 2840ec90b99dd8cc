package gorm

import (
	"context"

	"gorm.io/gorm"
)

// Shared CRUD plumbing for the typed store methods. Everything here is
// package-internal and works on the raw *gorm.DB, folding in the concerns
// every method repeats: context propagation, not-found mapping, and
// duplicate detection.

// findByField loads the single record of type T whose field equals value,
// mapping gorm.ErrRecordNotFound to missing.
func findByField[T any](ctx context.Context, db *gorm.DB, field string, value any, missing error) (*T, error) {
	var rec T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&rec).Error; err != nil {
		return nil, convertNotFoundError(err, missing)
	}
	return &rec, nil
}

// findAll loads every record of type T in the given order. No records is
// an empty slice, not nil, so callers can serialize the result directly.
func findAll[T any](ctx context.Context, db *gorm.DB, order string) ([]*T, error) {
	recs := []*T{}
	if err := db.WithContext(ctx).Order(order).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// insert creates rec, mapping unique constraint violations to dup.
func insert[T any](ctx context.Context, db *gorm.DB, rec *T, dup error) error {
	err := db.WithContext(ctx).Create(rec).Error
	if err != nil && isUniqueViolation(err) {
		return dup
	}
	return err
}

// deleteByField removes the records of type T whose field equals value,
// returning missing when nothing matched.
func deleteByField[T any](ctx context.Context, db *gorm.DB, field string, value any, missing error) error {
	var zero T
	res := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return missing
	}
	return nil
}
