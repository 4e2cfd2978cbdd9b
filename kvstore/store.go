// Package kvstore provides the key-value storage abstraction that the LSH
// index and the inverted index are built on.
//
// Two semantic flavors share a common contract: an OrderedStore keeps an
// ordered sequence of values per key, an UnorderedStore keeps a set.
// Backends are interchangeable; an in-process map-backed implementation and a
// Redis-backed one are provided. Backend identity is chosen exactly once,
// through Config, and never by string-keyed dispatch.
package kvstore

import "context"

// Store is the capability contract shared by both storage flavors.
// All operations are synchronous; any blocking happens inside the backend
// call, never in the caller's logic.
type Store interface {
	// Keys returns all keys currently present.
	Keys(ctx context.Context) ([]string, error)

	// Get returns the values stored under key. A missing key yields an
	// empty collection, never an error.
	Get(ctx context.Context, key string) ([]string, error)

	// GetMany returns the values for each key, one slice per key in input
	// order. Backends may pipeline the reads; no cross-key atomicity is
	// guaranteed.
	GetMany(ctx context.Context, keys ...string) ([][]string, error)

	// Insert adds val under key. For ordered stores this appends; for
	// unordered stores it is idempotent per value.
	Insert(ctx context.Context, key, val string) error

	// Remove deletes key and all its values. The memory backend returns
	// ErrKeyNotFound for an absent key; networked backends may treat the
	// removal of an absent key as a no-op.
	Remove(ctx context.Context, key string) error

	// RemoveValue deletes one occurrence of val under key.
	RemoveValue(ctx context.Context, key, val string) error

	// Has reports whether key is present.
	Has(ctx context.Context, key string) (bool, error)

	// Size returns the number of keys.
	Size(ctx context.Context) (int, error)

	// ItemCounts returns the number of values stored under each key.
	ItemCounts(ctx context.Context) (map[string]int, error)

	// BulkSession starts a buffered insertion session. One session is one
	// logical writer; it is not safe for concurrent use.
	BulkSession() BulkSession
}

// OrderedStore stores an ordered sequence of values per key.
type OrderedStore interface {
	Store
}

// UnorderedStore stores a set of values per key.
type UnorderedStore interface {
	Store

	// Reference returns an opaque handle to the set stored under key,
	// understood only by the backend that issued it. References are only
	// valid with stores of the same backend.
	Reference(ctx context.Context, key string) (Reference, error)

	// UnionReferences computes the union of the referenced sets. A
	// networked backend performs the union server-side instead of
	// transferring every member to the caller. Zero references yield an
	// empty result, not an error.
	UnionReferences(ctx context.Context, refs ...Reference) ([]string, error)
}

// Reference is an opaque handle to a stored set.
type Reference interface {
	isReference()
}

// BulkSession queues inserts and applies them on Close. While the session is
// open no visibility guarantee is made for queued writes; after Close every
// queued write is visible exactly once.
type BulkSession interface {
	// Insert queues a write. The backend may flush queued writes early to
	// bound memory usage.
	Insert(ctx context.Context, key, val string) error

	// Close flushes all remaining queued writes. It is safe to defer:
	// closing an already-closed session is a no-op.
	Close(ctx context.Context) error
}

// Named is implemented by stores whose keys live in a shared external
// namespace (e.g. a Redis database). The name is all that is needed to
// re-attach to the same data after a restart.
type Named interface {
	Name() string
}

// Dumper is implemented by stores that can export their full contents, used
// for snapshotting in-process backends. Networked backends keep their data
// server-side and do not implement it.
type Dumper interface {
	Dump(ctx context.Context) (map[string][]string, error)
}

// Restorer is the counterpart of Dumper for loading a snapshot.
type Restorer interface {
	Restore(ctx context.Context, data map[string][]string) error
}
