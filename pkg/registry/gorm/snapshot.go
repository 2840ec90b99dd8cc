package gorm

import (
	"context"
	"fmt"
	"os"
)

// Snapshot writes a consistent copy of the SQLite database file to path.
// VACUUM INTO produces a complete, compacted database image even while
// other connections are reading and writing, so the recorder does not have
// to stop for a backup. PostgreSQL deployments back up with pg_dump
// instead; Snapshot refuses them rather than producing a file that only
// looks like a backup.
func (s *Store) Snapshot(ctx context.Context, path string) error {
	if s.cfg.Dialect != DialectSQLite {
		return fmt.Errorf("snapshot requires the sqlite backend; back up %s with pg_dump", s.cfg.Dialect)
	}
	// VACUUM INTO refuses to overwrite. A stale partial file from an
	// interrupted snapshot would wedge every later attempt, so clear the
	// destination first.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear snapshot destination: %w", err)
	}
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("failed to snapshot registry database: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen snapshot: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	return nil
}
