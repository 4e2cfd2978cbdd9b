package kvstore

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryList is the in-process ordered store, backed by a plain map of
// slices. Safe for concurrent use.
type MemoryList struct {
	mu sync.RWMutex
	m  map[string][]string
}

// NewMemoryList creates an empty in-process ordered store.
func NewMemoryList() *MemoryList {
	return &MemoryList{m: make(map[string][]string)}
}

// Keys returns all keys currently present.
func (s *MemoryList) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys, nil
}

// Get returns a copy of the values under key, empty if absent.
func (s *MemoryList) Get(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := s.m[key]
	out := make([]string, len(vals))
	copy(out, vals)
	return out, nil
}

// GetMany returns the values for each key in input order.
func (s *MemoryList) GetMany(ctx context.Context, keys ...string) ([][]string, error) {
	out := make([][]string, len(keys))
	for i, key := range keys {
		vals, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// Insert appends val to the sequence under key.
func (s *MemoryList) Insert(_ context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = append(s.m[key], val)
	return nil
}

// Remove deletes key and its values. Removing an absent key fails with
// ErrKeyNotFound.
func (s *MemoryList) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[key]; !ok {
		return ErrKeyNotFound
	}
	delete(s.m, key)
	return nil
}

// RemoveValue deletes the first occurrence of val under key.
func (s *MemoryList) RemoveValue(_ context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals, ok := s.m[key]
	if !ok {
		return ErrKeyNotFound
	}
	for i, v := range vals {
		if v == val {
			s.m[key] = append(vals[:i], vals[i+1:]...)
			return nil
		}
	}
	return ErrKeyNotFound
}

// Has reports whether key is present.
func (s *MemoryList) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.m[key]
	return ok, nil
}

// Size returns the number of keys.
func (s *MemoryList) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.m), nil
}

// ItemCounts returns the number of values under each key.
func (s *MemoryList) ItemCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.m))
	for k, vals := range s.m {
		counts[k] = len(vals)
	}
	return counts, nil
}

// BulkSession returns a session that applies inserts directly; in-process
// writes need no batching.
func (s *MemoryList) BulkSession() BulkSession {
	return &directSession{store: s}
}

// Dump exports the full contents for snapshotting.
func (s *MemoryList) Dump(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.m))
	for k, vals := range s.m {
		cp := make([]string, len(vals))
		copy(cp, vals)
		out[k] = cp
	}
	return out, nil
}

// Restore replaces the contents with the given snapshot data.
func (s *MemoryList) Restore(_ context.Context, data map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string][]string, len(data))
	for k, vals := range data {
		cp := make([]string, len(vals))
		copy(cp, vals)
		s.m[k] = cp
	}
	return nil
}

// MemorySet is the in-process unordered store. Values are interned to uint32
// IDs and each key's set is a roaring bitmap, which keeps large band
// hashtables compact and makes set unions cheap. Safe for concurrent use.
type MemorySet struct {
	mu   sync.RWMutex
	m    map[string]*roaring.Bitmap
	vals *interner
}

// NewMemorySet creates an empty in-process unordered store.
func NewMemorySet() *MemorySet {
	return &MemorySet{
		m:    make(map[string]*roaring.Bitmap),
		vals: newInterner(),
	}
}

// Keys returns all keys currently present.
func (s *MemorySet) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys, nil
}

// Get returns the members of the set under key, empty if absent.
// Member order is unspecified.
func (s *MemorySet) Get(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.m[key]
	if !ok {
		return []string{}, nil
	}
	return s.vals.resolve(bm), nil
}

// GetMany returns the members for each key in input order.
func (s *MemorySet) GetMany(ctx context.Context, keys ...string) ([][]string, error) {
	out := make([][]string, len(keys))
	for i, key := range keys {
		vals, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// Insert adds val to the set under key. Idempotent per value.
func (s *MemorySet) Insert(_ context.Context, key, val string) error {
	id := s.vals.intern(val)

	s.mu.Lock()
	defer s.mu.Unlock()

	bm, ok := s.m[key]
	if !ok {
		bm = roaring.New()
		s.m[key] = bm
	}
	bm.Add(id)
	return nil
}

// Remove deletes key and its set. Removing an absent key fails with
// ErrKeyNotFound.
func (s *MemorySet) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[key]; !ok {
		return ErrKeyNotFound
	}
	delete(s.m, key)
	return nil
}

// RemoveValue deletes val from the set under key. The emptied set stays
// registered under its key until Remove is called.
func (s *MemorySet) RemoveValue(_ context.Context, key, val string) error {
	id, ok := s.vals.lookup(val)
	if !ok {
		return ErrKeyNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bm, present := s.m[key]
	if !present || !bm.Contains(id) {
		return ErrKeyNotFound
	}
	bm.Remove(id)
	return nil
}

// Has reports whether key is present.
func (s *MemorySet) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.m[key]
	return ok, nil
}

// Size returns the number of keys.
func (s *MemorySet) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.m), nil
}

// ItemCounts returns the cardinality of the set under each key.
func (s *MemorySet) ItemCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.m))
	for k, bm := range s.m {
		counts[k] = int(bm.GetCardinality())
	}
	return counts, nil
}

// Reference returns a handle to the set under key. The handle captures a
// point-in-time clone of the bitmap; later writes do not affect it.
func (s *MemorySet) Reference(_ context.Context, key string) (Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.m[key]
	if !ok {
		return memoryReference{bm: roaring.New(), vals: s.vals}, nil
	}
	return memoryReference{bm: bm.Clone(), vals: s.vals}, nil
}

// UnionReferences computes the union of the referenced sets via multi-way
// bitmap ORs. Zero references yield an empty result.
//
// Bitmap IDs are private to the interner that assigned them, so references
// from different stores cannot be ORed directly: bitmaps are grouped by
// interner, ORed within each group, and the resolved values merged.
func (s *MemorySet) UnionReferences(_ context.Context, refs ...Reference) ([]string, error) {
	if len(refs) == 0 {
		return []string{}, nil
	}

	groups := make(map[*interner][]*roaring.Bitmap, 1)
	order := make([]*interner, 0, 1)
	for _, ref := range refs {
		mr, ok := ref.(memoryReference)
		if !ok {
			return nil, ErrForeignReference
		}
		if _, ok := groups[mr.vals]; !ok {
			order = append(order, mr.vals)
		}
		groups[mr.vals] = append(groups[mr.vals], mr.bm)
	}

	if len(order) == 1 {
		in := order[0]
		return in.resolve(roaring.FastOr(groups[in]...)), nil
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, in := range order {
		for _, v := range in.resolve(roaring.FastOr(groups[in]...)) {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// BulkSession returns a session that applies inserts directly.
func (s *MemorySet) BulkSession() BulkSession {
	return &directSession{store: s}
}

// Dump exports the full contents for snapshotting.
func (s *MemorySet) Dump(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.m))
	for k, bm := range s.m {
		out[k] = s.vals.resolve(bm)
	}
	return out, nil
}

// Restore replaces the contents with the given snapshot data.
func (s *MemorySet) Restore(ctx context.Context, data map[string][]string) error {
	s.mu.Lock()
	s.m = make(map[string]*roaring.Bitmap, len(data))
	s.mu.Unlock()

	for k, vals := range data {
		for _, v := range vals {
			if err := s.Insert(ctx, k, v); err != nil {
				return err
			}
		}
		if len(vals) == 0 {
			s.mu.Lock()
			s.m[k] = roaring.New()
			s.mu.Unlock()
		}
	}
	return nil
}

type memoryReference struct {
	bm   *roaring.Bitmap
	vals *interner
}

func (memoryReference) isReference() {}

// directSession applies inserts synchronously; Close has nothing to flush.
type directSession struct {
	store  Store
	closed bool
}

func (s *directSession) Insert(ctx context.Context, key, val string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.store.Insert(ctx, key, val)
}

func (s *directSession) Close(_ context.Context) error {
	s.closed = true
	return nil
}
