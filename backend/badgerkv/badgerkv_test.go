package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i5heu/sec-cs/pkg/errs"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	key := []byte("digest-key")
	value := []byte("ciphertext bytes")

	require.NoError(t, store.Put(ctx, key, value))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, value, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_GetAbsentKey(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(ctx, []byte("never written"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}
