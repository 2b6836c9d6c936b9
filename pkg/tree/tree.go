// Package tree builds and reads the hierarchical chunking tree: the
// Merkle-style structure that decomposes a content into leaf chunks and
// internal digest-record nodes, every one of them addressed and stored
// through pkg/nodestore.
package tree

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/i5heu/sec-cs/pkg/chunker"
	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/nodestore"
)

const (
	tagLeaf     byte = 0x00
	tagInternal byte = 0x01
)

// Tree builds and reads content over a node store, splitting at a fixed
// average chunk size.
type Tree struct {
	store     *nodestore.Store
	chunkSize int
}

// New returns a Tree that chunks content to an average of chunkSize bytes
// and stores nodes through store.
func New(store *nodestore.Store, chunkSize int) *Tree {
	return &Tree{store: store, chunkSize: chunkSize}
}

// Put builds a tree over data and returns its root digest and length.
func (t *Tree) Put(ctx context.Context, data []byte) (cryptwrap.Digest, uint64, error) {
	digest, length, _, err := t.PutChecked(ctx, data)
	return digest, length, err
}

// PutChecked builds a tree over data like Put, additionally reporting
// whether the root node was newly created by this call as opposed to
// already present from a prior Put of the same bytes.
func (t *Tree) PutChecked(ctx context.Context, data []byte) (cryptwrap.Digest, uint64, bool, error) {
	entries, err := t.buildLeafLevel(ctx, data)
	if err != nil {
		return cryptwrap.Digest{}, 0, false, err
	}
	for len(entries) > 1 {
		entries, err = t.buildInternalLevel(ctx, entries)
		if err != nil {
			return cryptwrap.Digest{}, 0, false, err
		}
	}
	root := entries[0]
	return root.digest, uint64(len(data)), root.isNew, nil
}

func (t *Tree) buildLeafLevel(ctx context.Context, data []byte) ([]entry, error) {
	splitter := chunker.New(bytes.NewReader(data), t.chunkSize)

	var entries []entry
	for {
		chunk, err := splitter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tree: splitting content: %w", err)
		}

		e, err := t.insertLeaf(ctx, chunk)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		// Degenerate case: zero-length content still needs a canonical
		// root, so insert a single empty leaf rather than returning an
		// empty entry list.
		e, err := t.insertLeaf(ctx, nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (t *Tree) insertLeaf(ctx context.Context, chunk []byte) (entry, error) {
	payload := make([]byte, 1+len(chunk))
	payload[0] = tagLeaf
	copy(payload[1:], chunk)
	digest, isNew, err := t.store.Insert(ctx, payload)
	if err != nil {
		return entry{}, fmt.Errorf("tree: inserting leaf: %w", err)
	}
	return entry{digest: digest, length: uint64(len(chunk)), isNew: isNew}, nil
}

func (t *Tree) buildInternalLevel(ctx context.Context, entries []entry) ([]entry, error) {
	groups := splitEntries(entries, t.chunkSize)

	out := make([]entry, 0, len(groups))
	for _, group := range groups {
		payload := encodeEntries(group)
		full := make([]byte, 1+len(payload))
		full[0] = tagInternal
		copy(full[1:], payload)

		digest, isNew, err := t.store.Insert(ctx, full)
		if err != nil {
			return nil, fmt.Errorf("tree: inserting internal node: %w", err)
		}

		var total uint64
		for _, e := range group {
			total += e.length
		}
		out = append(out, entry{digest: digest, length: total, isNew: isNew})
	}
	return out, nil
}

// Get reassembles the full content addressed by digest, whose total
// length is totalLength.
func (t *Tree) Get(ctx context.Context, digest cryptwrap.Digest, totalLength uint64) ([]byte, error) {
	return t.GetRange(ctx, digest, totalLength, 0, totalLength)
}

// GetRange reassembles the byte range [offset, offset+length) of the
// content addressed by digest, whose total length is totalLength.
func (t *Tree) GetRange(ctx context.Context, digest cryptwrap.Digest, totalLength, offset, length uint64) ([]byte, error) {
	a := offset
	b := offset + length
	if b > totalLength {
		b = totalLength
	}
	if a >= b {
		return nil, nil
	}
	return t.readNode(ctx, digest, 0, totalLength, a, b)
}

// readNode returns the overlap of query range [a, b) with the node's own
// coverage [nodeStart, nodeEnd), recursing into children for internal
// nodes.
func (t *Tree) readNode(ctx context.Context, digest cryptwrap.Digest, nodeStart, nodeEnd, a, b uint64) ([]byte, error) {
	if nodeEnd <= a || nodeStart >= b {
		return nil, nil
	}

	plaintext, err := t.store.Fetch(ctx, digest)
	if err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("tree: node %s has no tag byte", digest)
	}
	tag, payload := plaintext[0], plaintext[1:]

	switch tag {
	case tagLeaf:
		start := max(a, nodeStart) - nodeStart
		end := min(b, nodeEnd) - nodeStart
		if start >= end || end > uint64(len(payload)) {
			return nil, nil
		}
		out := make([]byte, end-start)
		copy(out, payload[start:end])
		return out, nil

	case tagInternal:
		children, err := decodeEntries(payload)
		if err != nil {
			return nil, fmt.Errorf("tree: node %s: %w", digest, err)
		}

		var out []byte
		offset := nodeStart
		for _, child := range children {
			childEnd := offset + child.length
			chunk, err := t.readNode(ctx, child.digest, offset, childEnd, a, b)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
			offset = childEnd
		}
		return out, nil

	default:
		return nil, fmt.Errorf("tree: node %s has unknown tag %d", digest, tag)
	}
}

// Delete releases every node reachable from digest exactly once,
// recursing into children before releasing the node itself.
func (t *Tree) Delete(ctx context.Context, digest cryptwrap.Digest) error {
	plaintext, err := t.store.Fetch(ctx, digest)
	if err != nil {
		return err
	}
	if len(plaintext) == 0 {
		return fmt.Errorf("tree: node %s has no tag byte", digest)
	}
	tag, payload := plaintext[0], plaintext[1:]

	if tag == tagInternal {
		children, err := decodeEntries(payload)
		if err != nil {
			return fmt.Errorf("tree: node %s: %w", digest, err)
		}
		for _, child := range children {
			if err := t.Delete(ctx, child.digest); err != nil {
				return err
			}
		}
	}

	if err := t.store.Release(ctx, digest); err != nil {
		return fmt.Errorf("tree: releasing %s: %w", digest, err)
	}
	return nil
}
