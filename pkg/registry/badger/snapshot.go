package badger

import (
	"context"
	"fmt"
	"os"
)

// Snapshot writes a full Badger backup stream to path. The stream is taken
// at a single read timestamp, so it is consistent even while the recorder
// keeps writing. It is not a copy of the value log; restoring goes through
// badger's stream loader, not a file rename.
func (s *BadgerStore) Snapshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if _, err := s.db.Backup(f, 0); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to back up badger database: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	return nil
}
