package tree

import (
	"encoding/binary"
	"fmt"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
)

// entry is one ⟨child_digest, subtree_length⟩ pair: the unit an internal
// node's payload is a concatenation of.
type entry struct {
	digest cryptwrap.Digest
	length uint64
	isNew  bool
}

// encodedSize returns how many bytes entry e occupies once serialized:
// a fixed-width digest followed by a LEB128 varint length.
func (e entry) encodedSize() int {
	return cryptwrap.DigestSize + varintSize(e.length)
}

func varintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// encodeEntries serializes an ordered entry list into an internal node's
// payload bytes.
func encodeEntries(entries []entry) []byte {
	size := 0
	for _, e := range entries {
		size += e.encodedSize()
	}
	out := make([]byte, 0, size)
	for _, e := range entries {
		out = append(out, e.digest[:]...)
		out = binary.AppendUvarint(out, e.length)
	}
	return out
}

// decodeEntries parses an internal node's payload back into its ordered
// entry list.
func decodeEntries(payload []byte) ([]entry, error) {
	var entries []entry
	for len(payload) > 0 {
		if len(payload) < cryptwrap.DigestSize {
			return nil, fmt.Errorf("tree: truncated entry, %d bytes left", len(payload))
		}
		digest, err := cryptwrap.DigestFromBytes(payload[:cryptwrap.DigestSize])
		if err != nil {
			return nil, fmt.Errorf("tree: decoding entry digest: %w", err)
		}
		payload = payload[cryptwrap.DigestSize:]

		length, n := binary.Uvarint(payload)
		if n <= 0 {
			return nil, fmt.Errorf("tree: decoding entry length varint")
		}
		payload = payload[n:]

		entries = append(entries, entry{digest: digest, length: length})
	}
	return entries, nil
}
