// Package cryptwrap implements the crypto wrapper abstraction of sec-cs: it
// binds the deterministic, content-derived digest used to address a node to
// the authenticated ciphertext stored under that digest, so that identical
// plaintexts always produce identical ciphertext addresses (convergent
// encryption) while any tampering with a stored value is detected on unwrap.
package cryptwrap

import (
	"encoding/hex"
	"fmt"

	"github.com/i5heu/sec-cs/pkg/errs"
)

// DigestSize is the fixed width, in bytes, of every digest produced by the
// wrappers in this package.
const DigestSize = 32

// Digest addresses a node's plaintext. Equal plaintexts under the same key
// always produce equal digests (convergence, see invariant I3 of the store).
type Digest [DigestSize]byte

// String renders the digest as lowercase hex, mainly for logging.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns the digest's fixed-width byte representation.
func (d Digest) Bytes() []byte {
	return d[:]
}

// IsZero reports whether d is the zero digest, used to recognize an
// unset/absent reference without a separate boolean.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// DigestFromBytes parses a fixed-width digest out of b. b must be exactly
// DigestSize bytes long.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("cryptwrap: digest must be %d bytes, got %d: %w", DigestSize, len(b), errs.ErrInvalidHandle)
	}
	copy(d[:], b)
	return d, nil
}

// Wrapper is the capability bundle a component needs to address-and-seal a
// plaintext node and to unseal-and-verify it again. Implementations are
// pluggable: the store only ever depends on this interface, never on a
// concrete cipher.
type Wrapper interface {
	// Wrap deterministically derives a digest from plaintext and returns the
	// ciphertext bound to that digest. For a fixed key, Wrap(p) always
	// returns the same (digest, ciphertext) pair.
	Wrap(plaintext []byte) (Digest, []byte, error)

	// Unwrap recovers the plaintext for a ciphertext previously produced by
	// Wrap under the same key and digest. It returns errs.ErrAuthenticity if
	// the ciphertext was not produced that way.
	Unwrap(digest Digest, ciphertext []byte) ([]byte, error)
}
