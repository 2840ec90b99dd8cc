package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// AllocateOpen draws the next ID from the persistent sequence and stores the
// open row. Sequence leases survive crashes, so IDs are strictly increasing
// and never reused even across unclean shutdowns.
func (s *BadgerStore) AllocateOpen(ctx context.Context) (*dirmeta.OpenRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := s.nextOpenID()
	if err != nil {
		return nil, err
	}

	open := &registry.Open{
		ID:        id,
		UUID:      uuid.New(),
		StartedAt: time.Now().UTC(),
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		data, err := encodeOpen(open)
		if err != nil {
			return err
		}
		return txn.Set(keyOpen(open.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate open: %w", err)
	}

	ref := open.Ref()
	return &ref, nil
}

// CompleteOpen stamps the open's completion time. Completing an already
// completed open is a no-op that preserves the original timestamp.
func (s *BadgerStore) CompleteOpen(ctx context.Context, id uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyOpen(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrOpenNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		open, err := decodeOpen(val)
		if err != nil {
			return err
		}

		if open.Completed() {
			return nil
		}

		now := time.Now().UTC()
		open.CompletedAt = &now

		data, err := encodeOpen(open)
		if err != nil {
			return err
		}
		return txn.Set(keyOpen(id), data)
	})
}

// GetOpen retrieves an open by ID.
func (s *BadgerStore) GetOpen(ctx context.Context, id uint32) (*registry.Open, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var open *registry.Open

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyOpen(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrOpenNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		open, err = decodeOpen(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return open, nil
}

// ListOpens returns all opens in ascending ID order. The big-endian key
// layout makes the prefix scan come back already sorted.
func (s *BadgerStore) ListOpens(ctx context.Context) ([]*registry.Open, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opens := []*registry.Open{}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(prefixOpen)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeOpen(val)
			if err != nil {
				return err
			}
			opens = append(opens, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan opens: %w", err)
	}

	return opens, nil
}
