// Package badgerkv implements a disk-backed nodestore.Backend on top of
// Badger, the same embedded KV engine the teacher corpus uses throughout
// its own node/WAL/blockstore persistence layer.
package badgerkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/i5heu/sec-cs/pkg/errs"
	"github.com/i5heu/sec-cs/pkg/logging"
)

// keyPrefix namespaces sec-cs node entries within a Badger database that
// might be shared with other key spaces.
const keyPrefix = "node:"

// Store is a Badger-backed nodestore.Backend.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a Badger database at dir and
// returns a Store over it. Callers must Close the Store when done.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func namespaced(key []byte) []byte {
	out := make([]byte, len(keyPrefix)+len(key))
	copy(out, keyPrefix)
	copy(out[len(keyPrefix):], key)
	return out
}

// Get implements nodestore.Backend.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(namespaced(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte{}, v...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		logging.Logger.Warn("badgerkv: get failed", "error", err)
		return nil, fmt.Errorf("badgerkv: get: %w", err)
	}
	return value, nil
}

// Put implements nodestore.Backend.
func (s *Store) Put(_ context.Context, key []byte, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(namespaced(key), value)
	})
	if err != nil {
		logging.Logger.Warn("badgerkv: put failed", "error", err)
		return fmt.Errorf("badgerkv: put: %w", err)
	}
	return nil
}

// Delete implements nodestore.Backend.
func (s *Store) Delete(_ context.Context, key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(namespaced(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logging.Logger.Warn("badgerkv: delete failed", "error", err)
		return fmt.Errorf("badgerkv: delete: %w", err)
	}
	return nil
}
