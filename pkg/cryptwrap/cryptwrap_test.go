package cryptwrap

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i5heu/sec-cs/pkg/errs"
)

func newTestWrapper(t *testing.T) *HMACAESCTR {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	w, err := NewHMACAESCTR(key)
	require.NoError(t, err)
	return w
}

func TestHMACAESCTR_RoundTrip(t *testing.T) {
	w := newTestWrapper(t)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	digest, ciphertext, err := w.Wrap(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	got, err := w.Unwrap(digest, ciphertext)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plaintext, got))
}

func TestHMACAESCTR_Convergence(t *testing.T) {
	w := newTestWrapper(t)
	plaintext := []byte("convergent input")

	d1, c1, err := w.Wrap(plaintext)
	require.NoError(t, err)
	d2, c2, err := w.Wrap(plaintext)
	require.NoError(t, err)

	require.Equal(t, d1, d2)
	require.True(t, bytes.Equal(c1, c2))
}

func TestHMACAESCTR_DifferentKeysDiverge(t *testing.T) {
	w1 := newTestWrapper(t)
	w2 := newTestWrapper(t)
	plaintext := []byte("same plaintext, different keys")

	d1, _, err := w1.Wrap(plaintext)
	require.NoError(t, err)
	d2, _, err := w2.Wrap(plaintext)
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
}

func TestHMACAESCTR_TamperedCiphertextRejected(t *testing.T) {
	w := newTestWrapper(t)
	plaintext := []byte("do not modify me")

	digest, ciphertext, err := w.Wrap(plaintext)
	require.NoError(t, err)

	tampered := append([]byte{}, ciphertext...)
	tampered[0] ^= 0xFF

	_, err = w.Unwrap(digest, tampered)
	require.ErrorIs(t, err, errs.ErrAuthenticity)
}

func TestHMACAESCTR_EmptyPlaintext(t *testing.T) {
	w := newTestWrapper(t)

	digest, ciphertext, err := w.Wrap(nil)
	require.NoError(t, err)
	require.Len(t, ciphertext, 0)

	got, err := w.Unwrap(digest, ciphertext)
	require.NoError(t, err)
	require.Len(t, got, 0)
}

func TestHash_RoundTrip(t *testing.T) {
	var w Hash
	plaintext := []byte("hashed, not encrypted")

	digest, ciphertext, err := w.Wrap(plaintext)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plaintext, ciphertext))

	got, err := w.Unwrap(digest, ciphertext)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plaintext, got))
}

func TestDigestFromBytes(t *testing.T) {
	_, err := DigestFromBytes(make([]byte, 10))
	require.Error(t, err)

	_, err = DigestFromBytes(make([]byte, DigestSize))
	require.NoError(t, err)
}
