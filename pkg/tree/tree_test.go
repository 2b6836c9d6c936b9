package tree

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i5heu/sec-cs/backend/memkv"
	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/errs"
	"github.com/i5heu/sec-cs/pkg/nodestore"
)

func newTestTree(t *testing.T, chunkSize int) (*Tree, *memkv.Store) {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	wrapper, err := cryptwrap.NewHMACAESCTR(key)
	require.NoError(t, err)
	backend := memkv.New()
	store := nodestore.New(backend, wrapper)
	return New(store, chunkSize), backend
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestTree_EmptyContent(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)

	digest, length, err := tr.Put(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), length)
	require.Equal(t, 1, backend.Len())

	got, err := tr.Get(ctx, digest, length)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, tr.Delete(ctx, digest))
	require.Equal(t, 0, backend.Len())
}

func TestTree_SmallContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTree(t, 256)
	data := []byte("This is a test content.")

	digest, length, err := tr.Put(ctx, data)
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), length)

	got, err := tr.Get(ctx, digest, length)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestTree_LargeContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTree(t, 256)
	data := randomBytes(t, 1<<20)

	digest, length, err := tr.Put(ctx, data)
	require.NoError(t, err)

	got, err := tr.Get(ctx, digest, length)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestTree_IdempotentPut(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)
	data := randomBytes(t, 1<<20)

	d1, l1, err := tr.Put(ctx, data)
	require.NoError(t, err)
	sizeAfterFirst := backend.Len()

	d2, l2, err := tr.Put(ctx, data)
	require.NoError(t, err)

	require.Equal(t, d1, d2)
	require.Equal(t, l1, l2)
	require.Equal(t, sizeAfterFirst, backend.Len())
}

func TestTree_NearDedup(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)
	data := randomBytes(t, 1<<20)

	_, _, err := tr.Put(ctx, data)
	require.NoError(t, err)
	sizeAfterFirst := backend.Len()

	edited := append([]byte{}, data...)
	edited[524288] ^= 0xFF
	_, _, err = tr.Put(ctx, edited)
	require.NoError(t, err)

	growth := backend.Len() - sizeAfterFirst
	require.Less(t, growth, 40, "expected O(log n) new entries, got %d new entries", growth)
}

// TestTree_MinimumChunkSize builds content at the smallest ChunkSize
// splitEntries can still shrink an entry list at: enough leaf chunks to
// force at least two internal levels. A regression that lets splitEntries
// emit one-entry groups would leave buildInternalLevel returning the same
// entry count forever, so Put is run on a goroutine with a deadline
// instead of directly, to fail fast rather than hang the suite.
func TestTree_MinimumChunkSize(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTree(t, MinChunkSize)
	data := randomBytes(t, 64*1024)

	type result struct {
		digest cryptwrap.Digest
		length uint64
		err    error
	}
	done := make(chan result, 1)
	go func() {
		digest, length, err := tr.Put(ctx, data)
		done <- result{digest, length, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		got, err := tr.Get(ctx, r.digest, r.length)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, got))
	case <-time.After(10 * time.Second):
		t.Fatal("Put did not terminate at the minimum chunk size")
	}
}

// TestTree_InsertionResync exercises the path TestTree_NearDedup cannot:
// a byte-flip preserves leaf alignment, but inserting bytes shifts every
// downstream leaf entry by one index. With content-defined grouping at
// the internal levels, only the nodes covering the edit and their
// ancestors on the path to the root should change; growth should stay
// O(log n), not O(n/c) from the internal levels re-aligning wholesale.
func TestTree_InsertionResync(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)
	data := randomBytes(t, 1<<20)

	_, _, err := tr.Put(ctx, data)
	require.NoError(t, err)
	sizeAfterFirst := backend.Len()

	edited := make([]byte, 0, len(data)+5)
	edited = append(edited, data[:524288]...)
	edited = append(edited, randomBytes(t, 5)...)
	edited = append(edited, data[524288:]...)

	_, _, err = tr.Put(ctx, edited)
	require.NoError(t, err)

	growth := backend.Len() - sizeAfterFirst
	require.Less(t, growth, 200, "expected O(log n) new entries after an insertion, got %d new entries", growth)
}

func TestTree_GetRange(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTree(t, 256)
	data := randomBytes(t, 64*1024)

	digest, length, err := tr.Put(ctx, data)
	require.NoError(t, err)

	got, err := tr.GetRange(ctx, digest, length, 10000, 5000)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data[10000:15000], got))
}

func TestTree_DeleteIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)
	data := []byte("delete me once")

	digest, _, err := tr.Put(ctx, data)
	require.NoError(t, err)

	require.NoError(t, tr.Delete(ctx, digest))
	require.Equal(t, 0, backend.Len())

	err = tr.Delete(ctx, digest)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTree_TamperDetected(t *testing.T) {
	ctx := context.Background()
	tr, backend := newTestTree(t, 256)
	data := randomBytes(t, 4096)

	digest, length, err := tr.Put(ctx, data)
	require.NoError(t, err)

	raw, err := backend.Get(ctx, digest.Bytes())
	require.NoError(t, err)
	tampered := append([]byte{}, raw...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, backend.Put(ctx, digest.Bytes(), tampered))

	_, err = tr.Get(ctx, digest, length)
	require.ErrorIs(t, err, errs.ErrAuthenticity)
}
