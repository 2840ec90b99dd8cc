package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// CreateUser creates a user row keyed by username. A missing ID is replaced
// with a freshly generated UUID.
func (s *BadgerStore) CreateUser(ctx context.Context, user *registry.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if user.Username == "" {
		return "", fmt.Errorf("username is required")
	}
	user.EnsureID()

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyUser(user.Username)); err == nil {
			return registry.ErrDuplicateUser
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		data, err := encodeUser(user)
		if err != nil {
			return err
		}
		return txn.Set(keyUser(user.Username), data)
	}); err != nil {
		return "", err
	}

	return user.ID, nil
}

// GetUser looks up a user by username.
func (s *BadgerStore) GetUser(ctx context.Context, username string) (*registry.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *registry.User

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyUser(username))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = decodeUser(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ListUsers returns all users ordered by username.
func (s *BadgerStore) ListUsers(ctx context.Context) ([]*registry.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := []*registry.User{}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(prefixUser)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeUser(val)
			if err != nil {
				return err
			}
			users = append(users, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	// Username keys scan in byte order, which matches the ordering contract
	// for ASCII names; sort anyway so multi-byte usernames stay consistent
	// with the SQL backends.
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	return users, nil
}

// UpdateUserPermissions replaces the user's permission flags. The flags are
// stored in serialized form exactly as given; the registry never interprets
// them.
func (s *BadgerStore) UpdateUserPermissions(ctx context.Context, username string, perms dirmeta.Permissions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyUser(username))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err := decodeUser(val)
		if err != nil {
			return err
		}

		user.SetPermissions(perms)
		user.UpdatedAt = time.Now().UTC()

		data, err := encodeUser(user)
		if err != nil {
			return err
		}
		return txn.Set(keyUser(username), data)
	})
}

// DeleteUser removes a user by username.
func (s *BadgerStore) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyUser(username)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return registry.ErrUserNotFound
		} else if err != nil {
			return err
		}

		return txn.Delete(keyUser(username))
	})
}
