package nodestore

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i5heu/sec-cs/backend/memkv"
	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/errs"
)

func newTestStore(t *testing.T) (*Store, *memkv.Store) {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	wrapper, err := cryptwrap.NewHMACAESCTR(key)
	require.NoError(t, err)
	backend := memkv.New()
	return New(backend, wrapper), backend
}

func TestStore_InsertFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	digest, _, err := s.Insert(ctx, []byte("hello"))
	require.NoError(t, err)

	got, err := s.Fetch(ctx, digest)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestStore_InsertDeduplicates(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	d1, _, err := s.Insert(ctx, []byte("shared"))
	require.NoError(t, err)
	d2, _, err := s.Insert(ctx, []byte("shared"))
	require.NoError(t, err)

	require.Equal(t, d1, d2)
	require.Equal(t, 1, backend.Len())
}

func TestStore_ReleaseDropsAtZeroRefcount(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	digest, _, err := s.Insert(ctx, []byte("once"))
	require.NoError(t, err)
	require.Equal(t, 1, backend.Len())

	require.NoError(t, s.Release(ctx, digest))
	require.Equal(t, 0, backend.Len())

	_, err = s.Fetch(ctx, digest)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_ReleaseSurvivesWhileReferenced(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	digest, _, err := s.Insert(ctx, []byte("twice"))
	require.NoError(t, err)
	_, _, err = s.Insert(ctx, []byte("twice"))
	require.NoError(t, err)
	require.Equal(t, 1, backend.Len())

	require.NoError(t, s.Release(ctx, digest))
	require.Equal(t, 1, backend.Len())

	got, err := s.Fetch(ctx, digest)
	require.NoError(t, err)
	require.Equal(t, []byte("twice"), got)

	require.NoError(t, s.Release(ctx, digest))
	require.Equal(t, 0, backend.Len())
}

func TestStore_ReleaseAbsentDigest(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var digest cryptwrap.Digest
	err := s.Release(ctx, digest)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_TamperedCiphertextDetected(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	digest, _, err := s.Insert(ctx, []byte("integrity matters"))
	require.NoError(t, err)

	raw, err := backend.Get(ctx, digest.Bytes())
	require.NoError(t, err)
	tampered := append([]byte{}, raw...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, backend.Put(ctx, digest.Bytes(), tampered))

	_, err = s.Fetch(ctx, digest)
	require.ErrorIs(t, err, errs.ErrAuthenticity)
}

func TestStore_WithReferenceCountingDisabled(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	wrapper, err := cryptwrap.NewHMACAESCTR(key)
	require.NoError(t, err)
	backend := memkv.New()
	s := New(backend, wrapper, WithReferenceCountingDisabled())

	d1, _, err := s.Insert(ctx, []byte("no refcounting"))
	require.NoError(t, err)
	_, _, err = s.Insert(ctx, []byte("no refcounting"))
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, d1))
	_, err = s.Fetch(ctx, d1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
