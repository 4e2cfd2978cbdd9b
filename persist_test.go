package minlsh

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/minlsh/blobstore"
	"github.com/hupe1980/minlsh/snapshot"
)

func seedIndex(t *testing.T) *MinHashLSH {
	t.Helper()
	ctx := context.Background()

	index, err := New(WithNumPerm(4), WithParams(2, 2))
	require.NoError(t, err)

	require.NoError(t, index.Insert(ctx, "a", Signature{1, 2, 3, 4}))
	require.NoError(t, index.Insert(ctx, "b", Signature{1, 2, 9, 9}))
	require.NoError(t, index.Insert(ctx, "c", Signature{7, 7, 9, 9}))
	return index
}

func assertSameQueries(t *testing.T, ctx context.Context, a, b *MinHashLSH) {
	t.Helper()

	for _, sig := range []Signature{
		{1, 2, 3, 4},
		{1, 2, 0, 0},
		{0, 0, 9, 9},
		{5, 5, 5, 5},
	} {
		want, err := a.Query(ctx, sig)
		require.NoError(t, err)
		got, err := b.Query(ctx, sig)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, got)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	var buf bytes.Buffer
	require.NoError(t, index.WriteSnapshot(ctx, &buf))

	loaded, err := LoadSnapshot(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	b, r := loaded.Params()
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, loaded.NumPerm())

	assertSameQueries(t, ctx, index, loaded)

	// The restored index stays fully mutable.
	require.NoError(t, loaded.Remove(ctx, "a"))
	ok, err := loaded.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshot_QueryByKeysAfterRoundTrip(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	// Restore interns values per band store in whatever order the dump
	// iterates, so the restored stores' ID spaces diverge from each other.
	// The reference union must stay correct regardless.
	var buf bytes.Buffer
	require.NoError(t, index.WriteSnapshot(ctx, &buf))

	loaded, err := LoadSnapshot(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	// a collides only with b (first band); c never collides with a.
	got, err := loaded.QueryByKeys(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, got)

	got, err = loaded.QueryByKeys(ctx, "a", "b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c"}, got)
}

func TestSnapshot_RoundTripCompressionAndCodec(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	for _, compression := range []snapshot.Compression{
		snapshot.CompressionNone,
		snapshot.CompressionS2,
		snapshot.CompressionLZ4,
	} {
		var buf bytes.Buffer
		require.NoError(t, index.WriteSnapshot(ctx, &buf, snapshot.WithCompression(compression)))

		loaded, err := LoadSnapshot(ctx, bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assertSameQueries(t, ctx, index, loaded)
	}
}

func TestSnapshot_Blob(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	store := blobstore.NewMemoryStore()
	require.NoError(t, index.SaveSnapshotBlob(ctx, store, "snapshots/index.mlsh"))

	loaded, err := LoadSnapshotBlob(ctx, store, "snapshots/index.mlsh")
	require.NoError(t, err)
	assertSameQueries(t, ctx, index, loaded)

	_, err = LoadSnapshotBlob(ctx, store, "snapshots/missing.mlsh")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSnapshot_RejectsGarbage(t *testing.T) {
	ctx := context.Background()

	_, err := LoadSnapshot(ctx, bytes.NewReader([]byte("not a snapshot")))
	assert.Error(t, err)
}
