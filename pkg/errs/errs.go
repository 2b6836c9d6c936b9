// Package errs defines the sentinel error kinds returned across the sec-cs
// core. Callers should use errors.Is against these sentinels; components wrap
// them with fmt.Errorf("...: %w", ...) to attach context before returning.
package errs

import "errors"

var (
	// ErrNotFound is returned when a digest referenced during fetch or
	// release is absent from the backend.
	ErrNotFound = errors.New("sec-cs: digest not found")

	// ErrAuthenticity is returned when a ciphertext fails verification on
	// unwrap. It is never recovered from internally: a tampered node
	// invalidates the whole tree that references it.
	ErrAuthenticity = errors.New("sec-cs: authenticity check failed")

	// ErrBackend wraps any I/O failure surfaced by the backend.
	ErrBackend = errors.New("sec-cs: backend error")

	// ErrInvalidHandle is returned when a handle's encoded length does not
	// match digest_size + 8.
	ErrInvalidHandle = errors.New("sec-cs: invalid handle")

	// ErrChunkSizeTooSmall is returned by the constructor when the average
	// chunk size is too small relative to the digest size for the O(log n)
	// dedup-cost guarantee to hold.
	ErrChunkSizeTooSmall = errors.New("sec-cs: chunk size too small")
)
