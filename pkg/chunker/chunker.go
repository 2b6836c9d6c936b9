// Package chunker implements content-defined chunking (CDC): splitting a
// byte stream into variable-length chunks whose boundaries are a function
// of local content rather than fixed offsets, so that inserting or deleting
// a few bytes only ever perturbs the chunks adjacent to the edit.
//
// The tree builder uses this splitter over the raw content bytes to
// produce leaf chunks. Internal levels (multilevel CDC) are split by a
// separate, record-aligned variant in pkg/tree (splitEntries), which
// applies the same min/avg/max and mask scheme to the serialized
// child-record stream, so that unchanged internal nodes keep
// deduplicating across edits deep in a tree.
package chunker

import (
	"io"

	boxochunker "github.com/ipfs/boxo/chunker"
)

// Splitter pulls successive chunks out of a byte stream.
type Splitter interface {
	// Next returns the next chunk. It returns io.EOF, with a nil chunk,
	// once the underlying stream is exhausted.
	Next() ([]byte, error)
}

// New returns a Splitter that applies Rabin-fingerprint content-defined
// chunking to r, targeting an average chunk size of avgSize bytes. The
// minimum and maximum chunk sizes are pinned to avgSize/4 and avgSize*4
// respectively, bounding how far a single boundary shift can move.
//
// avgSize must be at least 4, so that avgSize/4 is non-zero; callers
// building a tree additionally enforce the store-wide minimum chunk size
// guard before ever reaching here.
func New(r io.Reader, avgSize int) Splitter {
	min := avgSize / 4
	if min < 1 {
		min = 1
	}
	max := avgSize * 4
	return &boxoSplitter{
		inner: boxochunker.NewRabinMinMax(r, uint64(min), uint64(avgSize), uint64(max)),
	}
}

type boxoSplitter struct {
	inner boxochunker.Splitter
}

func (s *boxoSplitter) Next() ([]byte, error) {
	return s.inner.NextBytes()
}
