package kvstore

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// interner maps values to dense uint32 IDs so sets of values can live in
// roaring bitmaps. IDs are never reused; the table only grows.
type interner struct {
	mu   sync.RWMutex
	ids  map[string]uint32
	vals []string
}

func newInterner() *interner {
	return &interner{ids: make(map[string]uint32)}
}

// intern returns the ID for val, assigning a new one if needed.
func (in *interner) intern(val string) uint32 {
	in.mu.RLock()
	id, ok := in.ids[val]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[val]; ok {
		return id
	}
	id = uint32(len(in.vals))
	in.ids[val] = id
	in.vals = append(in.vals, val)
	return id
}

// lookup returns the ID for val without assigning one.
func (in *interner) lookup(val string) (uint32, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	id, ok := in.ids[val]
	return id, ok
}

// resolve materializes the values for all IDs in the bitmap.
func (in *interner) resolve(bm *roaring.Bitmap) []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, in.vals[it.Next()])
	}
	return out
}
