package badger

import (
	"fmt"
	"io"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// restoreMaxPendingWrites bounds how many write batches the stream loader
// keeps in flight.
const restoreMaxPendingWrites = 256

// Restore loads a Snapshot stream into a database at path, creating it if
// needed. Loading into a database that already holds data merges rather
// than replaces, so callers restore into a fresh directory.
func Restore(path string, r io.Reader) error {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database at %s: %w", path, err)
	}
	if err := db.Load(r, restoreMaxPendingWrites); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to load badger backup stream: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}
