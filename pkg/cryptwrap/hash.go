package cryptwrap

import (
	"crypto/sha256"
	"fmt"

	"github.com/i5heu/sec-cs/pkg/errs"
)

// Hash is an unauthenticated Wrapper: it addresses plaintext by its plain
// SHA-256 digest and stores the plaintext unmodified. It provides no
// confidentiality and detects only accidental corruption, never a crafted
// tamper, since an attacker who controls the backend can simply recompute
// the digest of whatever they substitute.
//
// It exists to exercise the store against a second, independently-behaved
// Wrapper implementation and is never the default.
type Hash struct{}

// Wrap implements Wrapper.
func (Hash) Wrap(plaintext []byte) (Digest, []byte, error) {
	sum := sha256.Sum256(plaintext)
	ciphertext := make([]byte, len(plaintext))
	copy(ciphertext, plaintext)
	return Digest(sum), ciphertext, nil
}

// Unwrap implements Wrapper.
func (Hash) Unwrap(digest Digest, ciphertext []byte) ([]byte, error) {
	sum := sha256.Sum256(ciphertext)
	if Digest(sum) != digest {
		return nil, fmt.Errorf("cryptwrap: %w", errs.ErrAuthenticity)
	}
	plaintext := make([]byte, len(ciphertext))
	copy(plaintext, ciphertext)
	return plaintext, nil
}
