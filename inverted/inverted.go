// Package inverted provides an exact inverted index that maps values back to
// the keys containing them. It complements the approximate banded index with
// exact membership queries over small collections, sharing the same pluggable
// storage layer.
package inverted

import (
	"context"
	"fmt"

	"github.com/hupe1980/minlsh/kvstore"
)

// Index maps every value to the set of keys that contain it. A forward table
// records each key's values so that removal can unwind the value table
// without scanning it.
type Index struct {
	keys  kvstore.UnorderedStore // key -> values
	index kvstore.UnorderedStore // value -> keys
}

// New creates an inverted index backed by the configured storage.
func New(cfg kvstore.Config, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	keys, err := kvstore.NewUnordered(cfg, o.keysName)
	if err != nil {
		return nil, err
	}
	index, err := kvstore.NewUnordered(cfg, o.indexName)
	if err != nil {
		return nil, err
	}

	return &Index{keys: keys, index: index}, nil
}

type options struct {
	keysName  string
	indexName string
}

// Option configures Index construction.
type Option func(*options)

// WithStoreNames sets the namespace names for the forward and inverted
// tables, allowing a networked backend to re-attach to existing data.
func WithStoreNames(keys, index string) Option {
	return func(o *options) {
		o.keysName = keys
		o.indexName = index
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Insert indexes a key with its set of values. Inserting a key that is
// already present adds the values to its set.
func (idx *Index) Insert(ctx context.Context, key string, values []string) error {
	for _, v := range values {
		if err := idx.keys.Insert(ctx, key, v); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := idx.index.Insert(ctx, v, key); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the keys whose value sets contain the given value. A value
// never indexed yields an empty result.
func (idx *Index) Query(ctx context.Context, value string) ([]string, error) {
	return idx.index.Get(ctx, value)
}

// Contains reports whether the key has been indexed.
func (idx *Index) Contains(ctx context.Context, key string) (bool, error) {
	return idx.keys.Has(ctx, key)
}

// Remove deletes a key and unwinds its postings. Value entries still shared
// with other keys survive; entries emptied by the removal are pruned.
// Removing an absent key returns kvstore.ErrKeyNotFound.
func (idx *Index) Remove(ctx context.Context, key string) error {
	ok, err := idx.keys.Has(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("remove %q: %w", key, kvstore.ErrKeyNotFound)
	}

	values, err := idx.keys.Get(ctx, key)
	if err != nil {
		return err
	}
	for _, v := range values {
		if err := idx.index.RemoveValue(ctx, v, key); err != nil {
			return err
		}
		remaining, err := idx.index.Get(ctx, v)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := idx.index.Remove(ctx, v); err != nil {
				return err
			}
		}
	}
	return idx.keys.Remove(ctx, key)
}

// IsEmpty reports whether the index holds no postings.
func (idx *Index) IsEmpty(ctx context.Context) (bool, error) {
	size, err := idx.index.Size(ctx)
	if err != nil {
		return false, err
	}
	return size == 0, nil
}

// Counts returns, for every indexed value, the number of keys containing it.
func (idx *Index) Counts(ctx context.Context) (map[string]int, error) {
	return idx.index.ItemCounts(ctx)
}

// SubsetCounts restricts Counts to the postings contributed by the given
// keys. With no keys it is equivalent to Counts.
func (idx *Index) SubsetCounts(ctx context.Context, keys ...string) (map[string]int, error) {
	if len(keys) == 0 {
		return idx.Counts(ctx)
	}

	subset := kvstore.NewMemorySet()
	valueLists, err := idx.keys.GetMany(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for i, values := range valueLists {
		for _, v := range values {
			if err := subset.Insert(ctx, v, keys[i]); err != nil {
				return nil, err
			}
		}
	}
	return subset.ItemCounts(ctx)
}

// InsertionSession opens a buffered session for bulk indexing. Inserts are
// staged against both tables and flushed when the session is closed.
func (idx *Index) InsertionSession() *InsertionSession {
	return &InsertionSession{
		keys:  idx.keys.BulkSession(),
		index: idx.index.BulkSession(),
	}
}

// InsertionSession buffers inserts for bulk indexing. It must be closed to
// guarantee the buffered data is flushed; queries observe the staged inserts
// only after Close.
type InsertionSession struct {
	keys   kvstore.BulkSession
	index  kvstore.BulkSession
	closed bool
}

// Insert stages a key with its values. As with Index.Insert, values for a
// key already present are additions.
func (s *InsertionSession) Insert(ctx context.Context, key string, values []string) error {
	if s.closed {
		return kvstore.ErrSessionClosed
	}

	for _, v := range values {
		if err := s.keys.Insert(ctx, key, v); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := s.index.Insert(ctx, v, key); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the remaining buffered inserts. It is idempotent.
func (s *InsertionSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.keys.Close(ctx)
	if cerr := s.index.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
