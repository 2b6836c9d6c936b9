// Package seccs is the façade of sec-cs: a secure, deduplicating,
// content-addressable store layered over an untrusted key-value Backend.
// It binds the CDC splitter, crypto wrapper, refcounted node store, and
// tree builder into three operations, PutContent, GetContent, and
// DeleteContent, plus a random-access GetRange.
package seccs

import (
	"context"
	"fmt"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/errs"
	"github.com/i5heu/sec-cs/pkg/nodestore"
	"github.com/i5heu/sec-cs/pkg/tree"
)

// Store is a bound, ready-to-use sec-cs instance. The zero value is not
// usable; construct one with New.
type Store struct {
	cfg   Config
	nodes *nodestore.Store
	tree  *tree.Tree
}

// New builds a Store over backend using cfg. cfg is frozen: nothing
// about a Store's behavior changes after New returns.
func New(cfg Config, backend Backend) (*Store, error) {
	if cfg.ChunkSize < tree.MinChunkSize {
		return nil, fmt.Errorf("seccs: chunk size %d below minimum %d: %w", cfg.ChunkSize, tree.MinChunkSize, errs.ErrChunkSizeTooSmall)
	}

	wrapper := cfg.Wrapper
	if wrapper == nil {
		w, err := cryptwrap.NewHMACAESCTR(cfg.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("seccs: deriving default wrapper: %w", err)
		}
		wrapper = w
	}

	nodes := nodestore.New(backend, wrapper)
	return &Store{
		cfg:   cfg,
		nodes: nodes,
		tree:  tree.New(nodes, cfg.ChunkSize),
	}, nil
}

// PutContent stores data and returns a handle addressing it. Storing the
// same bytes twice returns an equal handle both times (convergence).
func (s *Store) PutContent(ctx context.Context, data []byte) (Handle, error) {
	digest, length, err := s.tree.Put(ctx, data)
	if err != nil {
		return Handle{}, fmt.Errorf("seccs: put: %w", err)
	}
	s.cfg.logger().Debug("seccs: put complete", "handle", Handle{Digest: digest, Length: length})
	return Handle{Digest: digest, Length: length}, nil
}

// PutContentChecked behaves like PutContent but additionally reports
// whether the content's root node was newly created by this call, as
// opposed to already present from an earlier Put of the same bytes.
func (s *Store) PutContentChecked(ctx context.Context, data []byte) (Handle, bool, error) {
	digest, length, isNew, err := s.tree.PutChecked(ctx, data)
	if err != nil {
		return Handle{}, false, fmt.Errorf("seccs: put: %w", err)
	}
	return Handle{Digest: digest, Length: length}, isNew, nil
}

// GetContent retrieves the exact bytes previously stored under h.
func (s *Store) GetContent(ctx context.Context, h Handle) ([]byte, error) {
	if h.Digest.IsZero() {
		return nil, fmt.Errorf("seccs: get: %w", errs.ErrInvalidHandle)
	}
	data, err := s.tree.Get(ctx, h.Digest, h.Length)
	if err != nil {
		return nil, fmt.Errorf("seccs: get: %w", err)
	}
	return data, nil
}

// GetRange retrieves the byte range [offset, offset+length) of the
// content addressed by h, clamped to the content's actual length.
func (s *Store) GetRange(ctx context.Context, h Handle, offset, length uint64) ([]byte, error) {
	if h.Digest.IsZero() {
		return nil, fmt.Errorf("seccs: get range: %w", errs.ErrInvalidHandle)
	}
	data, err := s.tree.GetRange(ctx, h.Digest, h.Length, offset, length)
	if err != nil {
		return nil, fmt.Errorf("seccs: get range: %w", err)
	}
	return data, nil
}

// DeleteContent releases every node reachable from h exactly once. A
// second DeleteContent of the same handle fails with errs.ErrNotFound.
func (s *Store) DeleteContent(ctx context.Context, h Handle) error {
	if h.Digest.IsZero() {
		return fmt.Errorf("seccs: delete: %w", errs.ErrInvalidHandle)
	}
	if err := s.tree.Delete(ctx, h.Digest); err != nil {
		return fmt.Errorf("seccs: delete: %w", err)
	}
	return nil
}
