package seccs

import (
	"encoding/binary"
	"fmt"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/errs"
)

// handleLengthWidth is the width, in bytes, of the big-endian total-length
// suffix appended to a digest to form a Handle's wire encoding.
const handleLengthWidth = 8

// Handle is what PutContent returns and GetContent/DeleteContent consume:
// a root digest plus the total byte length of the content it addresses.
// The length travels with the digest because the tree itself carries no
// length field at the root, and it is needed up front to bound a GetRange
// and to know how many bytes a full GetContent should expect back.
type Handle struct {
	Digest cryptwrap.Digest
	Length uint64
}

// Bytes encodes the handle as digest bytes followed by an 8-byte
// big-endian length.
func (h Handle) Bytes() []byte {
	out := make([]byte, cryptwrap.DigestSize+handleLengthWidth)
	copy(out, h.Digest[:])
	binary.BigEndian.PutUint64(out[cryptwrap.DigestSize:], h.Length)
	return out
}

// String renders the handle as hex digest plus length, for logging.
func (h Handle) String() string {
	return fmt.Sprintf("%s:%d", h.Digest, h.Length)
}

// ParseHandle decodes a handle previously produced by Handle.Bytes. It
// returns errs.ErrInvalidHandle if b is not exactly digest_size+8 bytes.
func ParseHandle(b []byte) (Handle, error) {
	if len(b) != cryptwrap.DigestSize+handleLengthWidth {
		return Handle{}, fmt.Errorf("seccs: handle is %d bytes, want %d: %w", len(b), cryptwrap.DigestSize+handleLengthWidth, errs.ErrInvalidHandle)
	}
	digest, err := cryptwrap.DigestFromBytes(b[:cryptwrap.DigestSize])
	if err != nil {
		return Handle{}, fmt.Errorf("seccs: %w", errs.ErrInvalidHandle)
	}
	length := binary.BigEndian.Uint64(b[cryptwrap.DigestSize:])
	return Handle{Digest: digest, Length: length}, nil
}
