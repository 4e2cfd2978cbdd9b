package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryList()

	require.NoError(t, s.Insert(ctx, "a", "1"))
	require.NoError(t, s.Insert(ctx, "a", "2"))
	require.NoError(t, s.Insert(ctx, "a", "2"))
	require.NoError(t, s.Insert(ctx, "a", "3"))

	vals, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "2", "3"}, vals)

	// RemoveValue drops a single occurrence.
	require.NoError(t, s.RemoveValue(ctx, "a", "2"))
	vals, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, vals)
}

func TestMemoryListMissingKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryList()

	// Get of an absent key returns an empty collection, never an error.
	vals, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, vals)

	// Remove of an absent key is a lookup error.
	err = s.Remove(ctx, "nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	err = s.RemoveValue(ctx, "nope", "1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryListGetMany(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryList()

	require.NoError(t, s.Insert(ctx, "a", "1"))
	require.NoError(t, s.Insert(ctx, "b", "2"))
	require.NoError(t, s.Insert(ctx, "b", "3"))

	got, err := s.GetMany(ctx, "b", "missing", "a")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"2", "3"}, got[0])
	assert.Empty(t, got[1])
	assert.Equal(t, []string{"1"}, got[2])
}

func TestMemoryListCounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryList()

	require.NoError(t, s.Insert(ctx, "a", "1"))
	require.NoError(t, s.Insert(ctx, "a", "2"))
	require.NoError(t, s.Insert(ctx, "b", "3"))

	n, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := s.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestMemorySetIdempotentInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()

	require.NoError(t, s.Insert(ctx, "a", "x"))
	require.NoError(t, s.Insert(ctx, "a", "x"))
	require.NoError(t, s.Insert(ctx, "a", "y"))

	vals, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, vals)

	counts, err := s.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2}, counts)
}

func TestMemorySetRemoveValueKeepsKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()

	require.NoError(t, s.Insert(ctx, "a", "x"))
	require.NoError(t, s.RemoveValue(ctx, "a", "x"))

	// The emptied set stays registered until Remove is called.
	ok, err := s.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	vals, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, vals)

	require.NoError(t, s.Remove(ctx, "a"))
	ok, err = s.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySetUnionReferences(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()

	require.NoError(t, s.Insert(ctx, "a", "x"))
	require.NoError(t, s.Insert(ctx, "a", "y"))
	require.NoError(t, s.Insert(ctx, "b", "y"))
	require.NoError(t, s.Insert(ctx, "b", "z"))

	ra, err := s.Reference(ctx, "a")
	require.NoError(t, err)
	rb, err := s.Reference(ctx, "b")
	require.NoError(t, err)
	rMissing, err := s.Reference(ctx, "missing")
	require.NoError(t, err)

	union, err := s.UnionReferences(ctx, ra, rb, rMissing)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, union)

	// Zero references yield an empty set, not an error.
	union, err = s.UnionReferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, union)
}

func TestMemorySetUnionReferencesAcrossStores(t *testing.T) {
	ctx := context.Background()

	// Interned IDs are store-local: each store assigns ID 0 to its own
	// first value, so ORing the raw bitmaps would collapse x and y.
	s1 := NewMemorySet()
	s2 := NewMemorySet()
	require.NoError(t, s1.Insert(ctx, "a", "x"))
	require.NoError(t, s2.Insert(ctx, "a", "y"))

	r1, err := s1.Reference(ctx, "a")
	require.NoError(t, err)
	r2, err := s2.Reference(ctx, "a")
	require.NoError(t, err)

	union, err := s1.UnionReferences(ctx, r1, r2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, union)

	// Values shared across stores still appear once.
	require.NoError(t, s2.Insert(ctx, "a", "x"))
	r2, err = s2.Reference(ctx, "a")
	require.NoError(t, err)

	union, err = s1.UnionReferences(ctx, r1, r2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, union)
}

func TestMemorySetReferenceIsPointInTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()

	require.NoError(t, s.Insert(ctx, "a", "x"))
	ref, err := s.Reference(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Insert(ctx, "a", "y"))

	union, err := s.UnionReferences(ctx, ref)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x"}, union)
}

func TestMemoryDumpRestore(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()

	require.NoError(t, s.Insert(ctx, "a", "x"))
	require.NoError(t, s.Insert(ctx, "a", "y"))
	require.NoError(t, s.Insert(ctx, "b", "x"))

	data, err := s.Dump(ctx)
	require.NoError(t, err)

	restored := NewMemorySet()
	require.NoError(t, restored.Restore(ctx, data))

	vals, err := restored.Get(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, vals)

	n, err := restored.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDirectSessionClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryList()

	sess := s.BulkSession()
	require.NoError(t, sess.Insert(ctx, "a", "1"))
	require.NoError(t, sess.Close(ctx))

	// Writes queued before Close are visible after it.
	vals, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, vals)

	// Close is idempotent; inserts after Close fail.
	require.NoError(t, sess.Close(ctx))
	assert.ErrorIs(t, sess.Insert(ctx, "b", "2"), ErrSessionClosed)
}
