// Package memkv implements an in-memory nodestore.Backend, used by the
// unit tests of the node store, the tree and the façade.
package memkv

import (
	"context"
	"sync"

	"github.com/i5heu/sec-cs/pkg/errs"
)

// Store is a map-backed nodestore.Backend. The zero value is not usable;
// construct one with New.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get implements nodestore.Backend.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[string(key)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements nodestore.Backend.
func (s *Store) Put(_ context.Context, key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.data[string(key)] = v
	return nil
}

// Delete implements nodestore.Backend.
func (s *Store) Delete(_ context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, string(key))
	return nil
}

// Len returns the number of keys currently stored, mainly for tests that
// want to assert on garbage collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
