package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// CreateDirectory registers a storage directory. A zero UUID is replaced
// with a freshly generated one. Uniqueness of both the UUID and the path is
// enforced inside a single transaction via the dp: index.
func (s *BadgerStore) CreateDirectory(ctx context.Context, dir *registry.Directory) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if dir.Path == "" {
		return uuid.Nil, fmt.Errorf("directory path is required")
	}
	if dir.UUID == uuid.Nil {
		dir.UUID = uuid.New()
	}
	if dir.CreatedAt.IsZero() {
		dir.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyDir(dir.UUID)); err == nil {
			return registry.ErrDuplicateDirectory
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		if _, err := txn.Get(keyDirPath(dir.Path)); err == nil {
			return registry.ErrDuplicateDirectory
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		data, err := encodeDirectory(dir)
		if err != nil {
			return err
		}
		if err := txn.Set(keyDir(dir.UUID), data); err != nil {
			return err
		}
		return txn.Set(keyDirPath(dir.Path), dir.UUID[:])
	}); err != nil {
		return uuid.Nil, err
	}

	return dir.UUID, nil
}

// GetDirectory retrieves a directory by UUID.
func (s *BadgerStore) GetDirectory(ctx context.Context, id uuid.UUID) (*registry.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dir *registry.Directory

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyDir(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrDirectoryNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		dir, err = decodeDirectory(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return dir, nil
}

// ListDirectories returns all registered directories ordered by path. The
// d: prefix scans in UUID order, so results are sorted after decoding.
func (s *BadgerStore) ListDirectories(ctx context.Context) ([]*registry.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirs := []*registry.Directory{}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(prefixDir)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeDirectory(val)
			if err != nil {
				return err
			}
			dirs = append(dirs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directories: %w", err)
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })

	return dirs, nil
}

// SetDirectoryLastComplete records the ID of the last open the directory
// completed. This must be durable before the directory's own sidecar
// advances, so a crash between the two leaves the registry ahead of the
// sidecar, never behind.
func (s *BadgerStore) SetDirectoryLastComplete(ctx context.Context, id uuid.UUID, openID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyDir(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrDirectoryNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		dir, err := decodeDirectory(val)
		if err != nil {
			return err
		}

		dir.LastCompleteOpenID = &openID

		data, err := encodeDirectory(dir)
		if err != nil {
			return err
		}
		return txn.Set(keyDir(id), data)
	})
}

// DeleteDirectory removes a directory row and its path index entry. The
// caller is responsible for tearing down the on-disk directory first.
func (s *BadgerStore) DeleteDirectory(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyDir(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrDirectoryNotFound
		}
		if err != nil {
			return err
		}

		// The path is needed to drop the index entry alongside the row.
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		dir, err := decodeDirectory(val)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyDir(id)); err != nil {
			return err
		}
		return txn.Delete(keyDirPath(dir.Path))
	})
}
