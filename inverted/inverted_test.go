package inverted

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/minlsh/kvstore"
)

func memConfig() kvstore.Config {
	return kvstore.Config{Backend: kvstore.BackendMemory}
}

func TestIndex_InsertQuery(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, "a", []string{"v1", "v2"}))
	require.NoError(t, idx.Insert(ctx, "b", []string{"v2", "v3"}))
	require.NoError(t, idx.Insert(ctx, "c", []string{"v3"}))

	keys, err := idx.Query(ctx, "v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	keys, err = idx.Query(ctx, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, keys)

	keys, err = idx.Query(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestIndex_InsertIsAdditive(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, "a", []string{"v1"}))

	// A second insert under the same key extends its value set.
	require.NoError(t, idx.Insert(ctx, "a", []string{"v2"}))

	keys, err := idx.Query(ctx, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, keys)

	keys, err = idx.Query(ctx, "v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, keys)

	// Removal unwinds values from every insert of the key.
	require.NoError(t, idx.Remove(ctx, "a"))

	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestIndex_RemoveKeepsSharedValues(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, "a", []string{"v1", "v2"}))
	require.NoError(t, idx.Insert(ctx, "b", []string{"v2", "v3"}))

	require.NoError(t, idx.Remove(ctx, "a"))

	ok, err := idx.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// v2 is shared with b and must survive.
	keys, err := idx.Query(ctx, "v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, keys)

	// v1 belonged only to a and must be pruned entirely.
	counts, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.NotContains(t, counts, "v1")
	assert.Equal(t, map[string]int{"v2": 1, "v3": 1}, counts)
}

func TestIndex_RemoveAbsent(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	err = idx.Remove(ctx, "nope")
	assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)
}

func TestIndex_IsEmpty(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	empty, err := idx.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, idx.Insert(ctx, "a", []string{"v1"}))

	empty, err = idx.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, idx.Remove(ctx, "a"))

	empty, err = idx.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestIndex_SubsetCounts(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, "a", []string{"v1", "v2"}))
	require.NoError(t, idx.Insert(ctx, "b", []string{"v2", "v3"}))
	require.NoError(t, idx.Insert(ctx, "c", []string{"v3", "v4"}))

	counts, err := idx.SubsetCounts(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"v1": 1, "v2": 2, "v3": 1}, counts)

	// No keys means the full counts.
	counts, err = idx.SubsetCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"v1": 1, "v2": 2, "v3": 2, "v4": 1}, counts)
}

func TestInsertionSession(t *testing.T) {
	ctx := context.Background()

	idx, err := New(memConfig())
	require.NoError(t, err)

	sess := idx.InsertionSession()
	require.NoError(t, sess.Insert(ctx, "a", []string{"v1"}))
	require.NoError(t, sess.Insert(ctx, "b", []string{"v1"}))
	require.NoError(t, sess.Insert(ctx, "b", []string{"v2"}))
	require.NoError(t, sess.Close(ctx))
	require.NoError(t, sess.Close(ctx), "close is idempotent")

	keys, err := idx.Query(ctx, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	keys, err = idx.Query(ctx, "v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, keys)

	err = sess.Insert(ctx, "c", []string{"v3"})
	assert.ErrorIs(t, err, kvstore.ErrSessionClosed)
}
