// Package nodestore implements the refcounted encrypted node store: the
// layer that sits directly on top of an untrusted key-value Backend and
// turns it into a deduplicating content-addressable map from digest to
// plaintext. Every node that the tree builder inserts under the same
// digest shares a single stored copy; the store keeps a reference count
// alongside the ciphertext and only asks the backend to delete a key once
// its count drops to zero.
package nodestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/errs"
	"github.com/i5heu/sec-cs/pkg/logging"
)

// Backend is the untrusted key-value store the node store is layered over.
// It is defined here, where it is consumed, rather than alongside any one
// implementation; backend/memkv and backend/badgerkv each implement it
// independently.
type Backend interface {
	// Get returns the value stored under key, or errs.ErrNotFound if no
	// such key exists.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Put stores value under key, replacing any existing value.
	Put(ctx context.Context, key []byte, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error
}

// numStripes bounds how many independent locks guard concurrent
// refcount updates. Two digests that hash to the same stripe serialize
// against each other even though they are unrelated; more stripes shrinks
// that false contention at the cost of more mutexes.
const numStripes = 256

// Store is the refcounted node store.
type Store struct {
	backend Backend
	wrapper cryptwrap.Wrapper

	stripes        [numStripes]sync.Mutex
	refcountingOff bool
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithReferenceCountingDisabled turns off refcount tracking: every Insert
// behaves as if the node were always new, and every Release deletes the
// node unconditionally regardless of how many other trees still reference
// it. This trades correctness for the ability to skip a read-before-write
// on every node, and exists only so cmd/seccsbench can measure raw
// backend throughput without the node store's bookkeeping in the way. It
// must never be the default for anything that keeps real content alive.
func WithReferenceCountingDisabled() Option {
	return func(s *Store) { s.refcountingOff = true }
}

// New constructs a Store over backend, sealing and opening node plaintext
// through wrapper.
func New(backend Backend, wrapper cryptwrap.Wrapper, opts ...Option) *Store {
	s := &Store{backend: backend, wrapper: wrapper}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func stripeFor(digest cryptwrap.Digest) int {
	h := fnv.New32a()
	h.Write(digest[:])
	return int(h.Sum32() % numStripes)
}

// Insert seals plaintext and stores it under its digest, bumping the
// refcount if a node with that digest already exists rather than writing
// a second copy. It returns the digest and whether this call
// created the entry (false if it only bumped an existing refcount).
func (s *Store) Insert(ctx context.Context, plaintext []byte) (cryptwrap.Digest, bool, error) {
	digest, ciphertext, err := s.wrapper.Wrap(plaintext)
	if err != nil {
		return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: sealing node: %w", err)
	}

	stripe := &s.stripes[stripeFor(digest)]
	stripe.Lock()
	defer stripe.Unlock()

	if s.refcountingOff {
		if err := s.backend.Put(ctx, digest.Bytes(), encodeEntry(1, ciphertext)); err != nil {
			return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
		}
		return digest, true, nil
	}

	existing, err := s.backend.Get(ctx, digest.Bytes())
	switch {
	case err == nil:
		refcount, existingCiphertext, decodeErr := decodeEntry(existing)
		if decodeErr != nil {
			return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: %w", decodeErr)
		}
		// The digest already binds this ciphertext to this plaintext; no
		// need to re-verify it, only to account for one more reference.
		if putErr := s.backend.Put(ctx, digest.Bytes(), encodeEntry(refcount+1, existingCiphertext)); putErr != nil {
			return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, putErr)
		}
		logging.Logger.Debug("nodestore: bumped refcount", "digest", digest.String(), "refcount", refcount+1)
		return digest, false, nil
	case err == errs.ErrNotFound:
		if putErr := s.backend.Put(ctx, digest.Bytes(), encodeEntry(1, ciphertext)); putErr != nil {
			return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, putErr)
		}
		return digest, true, nil
	default:
		return cryptwrap.Digest{}, false, fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
	}
}

// Fetch opens the node stored under digest and returns its plaintext. It
// returns errs.ErrNotFound if the node is absent, and errs.ErrAuthenticity
// if the stored ciphertext fails to verify against digest.
func (s *Store) Fetch(ctx context.Context, digest cryptwrap.Digest) ([]byte, error) {
	raw, err := s.backend.Get(ctx, digest.Bytes())
	if err == errs.ErrNotFound {
		return nil, fmt.Errorf("nodestore: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
	}

	_, ciphertext, err := decodeEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("nodestore: %w", err)
	}

	plaintext, err := s.wrapper.Unwrap(digest, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("nodestore: opening %s: %w", digest, err)
	}
	return plaintext, nil
}

// Release drops one reference to digest, deleting the underlying node once
// its refcount reaches zero. Releasing an absent digest returns
// errs.ErrNotFound.
func (s *Store) Release(ctx context.Context, digest cryptwrap.Digest) error {
	stripe := &s.stripes[stripeFor(digest)]
	stripe.Lock()
	defer stripe.Unlock()

	if s.refcountingOff {
		if err := s.backend.Delete(ctx, digest.Bytes()); err != nil {
			return fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
		}
		return nil
	}

	raw, err := s.backend.Get(ctx, digest.Bytes())
	if err == errs.ErrNotFound {
		return fmt.Errorf("nodestore: %w", errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
	}

	refcount, ciphertext, err := decodeEntry(raw)
	if err != nil {
		return fmt.Errorf("nodestore: %w", err)
	}

	refcount--
	if refcount <= 0 {
		if err := s.backend.Delete(ctx, digest.Bytes()); err != nil {
			return fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
		}
		logging.Logger.Debug("nodestore: node reached refcount zero, deleted", "digest", digest.String())
		return nil
	}

	if err := s.backend.Put(ctx, digest.Bytes(), encodeEntry(refcount, ciphertext)); err != nil {
		return fmt.Errorf("nodestore: %w: %w", errs.ErrBackend, err)
	}
	return nil
}

const refcountWidth = 8

func encodeEntry(refcount uint64, ciphertext []byte) []byte {
	out := make([]byte, refcountWidth+len(ciphertext))
	binary.BigEndian.PutUint64(out[:refcountWidth], refcount)
	copy(out[refcountWidth:], ciphertext)
	return out
}

func decodeEntry(raw []byte) (uint64, []byte, error) {
	if len(raw) < refcountWidth {
		return 0, nil, fmt.Errorf("stored entry shorter than refcount prefix")
	}
	refcount := binary.BigEndian.Uint64(raw[:refcountWidth])
	return refcount, raw[refcountWidth:], nil
}
