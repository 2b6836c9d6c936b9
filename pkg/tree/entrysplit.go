package tree

import (
	"hash/fnv"
	"math/bits"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
)

// expectedEntrySize is the typical serialized size of one ⟨digest,
// length⟩ record: a fixed 32-byte digest plus a one-to-two-byte LEB128
// length varint at the chunk sizes this store uses. The boundary mask is
// calibrated against this so a target byte size translates into a
// target entry count.
const expectedEntrySize = cryptwrap.DigestSize + 2

// MinChunkSize is the smallest ChunkSize the store accepts: room for two
// typical records in one internal node. Termination of the tree build
// loop does not depend on it, since splitEntries never emits a group of
// fewer than two entries except for the final remainder.
const MinChunkSize = 2 * expectedEntrySize

// hashWindowEntries bounds the trailing window the boundary predicate
// hashes, mirroring the leaf splitter's fixed-width rolling window: the
// decision at any candidate boundary depends only on the last few
// records, never on how far back the previous cut fell.
const hashWindowEntries = 4

// splitEntries is the entry-aligned variant of content-defined chunking
// (ML-CDC) described in pkg/chunker's package doc: the same mask/min/max
// boundary predicate as the leaf-level splitter, but evaluated only once a
// whole ⟨digest, length⟩ record has been appended to the pending run, so
// a cut never lands inside a record.
//
// Rather than driving boxo's streaming Rabin splitter, which has no
// notion of a record boundary, the boundary test here hashes a fixed
// trailing window of the run's most recent records with FNV-1a and tests
// its low bits against a fixed mask, exactly like the leaf splitter's
// mask test, just resampled at record granularity instead of
// continuously. This keeps the decision a deterministic function of
// content only, which is all P2/P4 require, and lets it resynchronize
// after an edit shifts earlier boundaries, since the window never reaches
// back to the previous cut point.
//
// A group is never emitted with fewer than two entries unless it is the
// final, unavoidable remainder: this guarantees splitEntries always
// shrinks an entry list of two or more records, which is what lets the
// tree build loop terminate regardless of how small avgSize is.
func splitEntries(entries []entry, avgSize int) [][]entry {
	min := avgSize / 4
	if min < 1 {
		min = 1
	}
	max := avgSize * 4
	mask := maskFor(avgSize)

	var groups [][]entry
	var current []entry
	currentSize := 0

	for _, e := range entries {
		current = append(current, e)
		currentSize += e.encodedSize()

		if len(current) < 2 {
			continue
		}
		if currentSize < min {
			continue
		}
		if currentSize >= max || runHash(current)&mask == 0 {
			groups = append(groups, current)
			current = nil
			currentSize = 0
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// maskFor returns a bitmask sized so the boundary test fires, on average,
// once every avgSize/expectedEntrySize records (rounded down to a power
// of two, with a minimum of two), i.e. once the pending
// run has accumulated roughly avgSize bytes' worth of entries, rather
// than once every avgSize individual entries. Calibrating by entry count
// instead of raw avgSize keeps the mask's expected run length well under
// the byte-based max cap, so the mask does the cutting and the cap stays
// a rare backstop. The mask always keeps at least one bit, so the test
// never degenerates into firing unconditionally.
func maskFor(avgSize int) uint64 {
	targetEntries := avgSize / expectedEntrySize
	if targetEntries < 1 {
		targetEntries = 1
	}
	bitsWide := bits.Len(uint(targetEntries)) - 1
	if bitsWide < 1 {
		bitsWide = 1
	}
	return uint64(1)<<uint(bitsWide) - 1
}

// runHash hashes only the trailing hashWindowEntries records of the
// pending run, not the whole run since the last cut, so the predicate at
// any candidate boundary is a function of a fixed nearby window rather
// than of where the previous cut happened to land.
func runHash(run []entry) uint64 {
	window := run
	if len(window) > hashWindowEntries {
		window = window[len(window)-hashWindowEntries:]
	}
	h := fnv.New64a()
	for _, e := range window {
		h.Write(e.digest[:])
	}
	return h.Sum64()
}
