package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// Healthcheck verifies the database is operational by starting a read
// transaction. Badger returns an error here if the database is closed or
// corrupted; anything deeper it handles internally.
func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badgerdb.Txn) error {
		return nil
	})
}

// Compile-time check that BadgerStore implements the registry Store interface.
var _ registry.Store = (*BadgerStore)(nil)
