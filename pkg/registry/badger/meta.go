package badger

import (
	"context"
	"errors"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DatabaseID returns the registry database's stable identity, generating and
// persisting one on first use. The read-check-write runs in a single Update
// transaction, so concurrent first calls cannot mint two identities.
func (s *BadgerStore) DatabaseID(ctx context.Context) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyDatabaseID())
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			id = uuid.New()
			return txn.Set(keyDatabaseID(), id[:])
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err = uuid.FromBytes(val)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}
