package minlsh

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/minlsh/kvstore"
)

// MinHashLSH is a banded Locality-Sensitive Hashing index over MinHash
// signatures. It answers which stored record keys are likely to share
// Jaccard similarity above the configured threshold with a query signature,
// without ever comparing full sets. Results are candidates: false positives
// and false negatives are expected and bounded by the band parameters, not
// eliminated.
//
// Each signature is partitioned into bands of rows contiguous values; the
// canonical byte encoding of each band is the key into a per-band hashtable
// (an unordered store). A key table (an ordered store) records the band keys
// of every inserted record so it can be removed again.
//
// The index adds no locking of its own; the threading model is defined by
// the storage backend. Concurrent mutations of the same record key must be
// serialized by the caller.
type MinHashLSH struct {
	h int // number of permutations
	b int // number of bands
	r int // rows per band

	hashranges [][2]int
	hashtables []kvstore.UnorderedStore
	keyTable   kvstore.OrderedStore

	storage kvstore.Config
	logger  *Logger
	metrics MetricsCollector

	countsMu sync.Mutex
	counts   []map[string]int // memoized by Counts, never persisted
}

// New creates a MinHashLSH index. Band parameters are either optimized for
// the configured threshold and weights, or taken verbatim from WithParams.
func New(optFns ...Option) (*MinHashLSH, error) {
	o := applyOptions(optFns)

	if o.threshold < 0.0 || o.threshold > 1.0 {
		return nil, &ErrInvalidThreshold{Threshold: o.threshold}
	}
	if o.numPerm < 2 {
		return nil, &ErrInvalidParams{NumPerm: o.numPerm}
	}
	if o.fpWeight < 0.0 || o.fpWeight > 1.0 || o.fnWeight < 0.0 || o.fnWeight > 1.0 ||
		o.fpWeight+o.fnWeight != 1.0 {
		return nil, &ErrInvalidWeights{FalsePositive: o.fpWeight, FalseNegative: o.fnWeight}
	}

	var b, r int
	if o.params != nil {
		b, r = o.params.bands, o.params.rows
		if b < 1 || r < 1 || b*r > o.numPerm {
			return nil, &ErrInvalidParams{Bands: b, Rows: r, NumPerm: o.numPerm}
		}
	} else {
		b, r = optimalParams(o.threshold, o.numPerm, o.fpWeight, o.fnWeight)
	}

	l := &MinHashLSH{
		h:       o.numPerm,
		b:       b,
		r:       r,
		storage: o.storage,
		logger:  o.logger,
		metrics: o.metrics,
	}

	keyTable, err := kvstore.NewOrdered(o.storage, o.keyTableName)
	if err != nil {
		return nil, err
	}
	l.keyTable = keyTable

	l.hashranges = make([][2]int, b)
	l.hashtables = make([]kvstore.UnorderedStore, b)
	for i := range b {
		l.hashranges[i] = [2]int{i * r, (i + 1) * r}
		name := ""
		if i < len(o.hashtableNames) {
			name = o.hashtableNames[i]
		}
		ht, err := kvstore.NewUnordered(o.storage, name)
		if err != nil {
			return nil, err
		}
		l.hashtables[i] = ht
	}

	return l, nil
}

// Params returns the band parameters (number of bands, rows per band).
func (l *MinHashLSH) Params() (bands, rows int) {
	return l.b, l.r
}

// NumPerm returns the permutation count signatures must have.
func (l *MinHashLSH) NumPerm() int {
	return l.h
}

func (l *MinHashLSH) validate(sig Signature) error {
	if len(sig) != l.h {
		return &ErrSignatureLengthMismatch{Expected: l.h, Actual: len(sig)}
	}
	return nil
}

func (l *MinHashLSH) bandKeys(sig Signature) []string {
	keys := make([]string, l.b)
	for i, rng := range l.hashranges {
		keys[i] = bandKey(sig, rng[0], rng[1])
	}
	return keys
}

// Insert adds a record key together with the MinHash signature of the set it
// references. The key must be unique within the index; inserting a present
// key fails with ErrDuplicateKey.
//
// A backend failure mid-sequence may leave the insert partially applied;
// partial state is surfaced, not rolled back.
func (l *MinHashLSH) Insert(ctx context.Context, key string, sig Signature) error {
	start := time.Now()
	err := l.insert(ctx, key, sig)
	l.metrics.RecordInsert(time.Since(start), err)
	l.logger.LogInsert(ctx, key, err)
	return err
}

func (l *MinHashLSH) insert(ctx context.Context, key string, sig Signature) error {
	if err := l.validate(sig); err != nil {
		return err
	}
	ok, err := l.keyTable.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return ErrDuplicateKey
	}

	bandKeys := l.bandKeys(sig)
	for _, bk := range bandKeys {
		if err := l.keyTable.Insert(ctx, key, bk); err != nil {
			return err
		}
	}
	for i, bk := range bandKeys {
		if err := l.hashtables[i].Insert(ctx, bk, key); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the record keys whose signatures agree with sig on at least
// one full band. Candidate order is unspecified.
func (l *MinHashLSH) Query(ctx context.Context, sig Signature) ([]string, error) {
	start := time.Now()
	candidates, err := l.queryBands(ctx, sig, l.b)
	l.metrics.RecordQuery(len(candidates), time.Since(start), err)
	l.logger.LogQuery(ctx, len(candidates), err)
	return candidates, err
}

// queryBands restricts the candidate union to the first bands bands, which
// shifts the effective threshold without rebuilding the index.
func (l *MinHashLSH) queryBands(ctx context.Context, sig Signature, bands int) ([]string, error) {
	if err := l.validate(sig); err != nil {
		return nil, err
	}
	if bands > l.b {
		return nil, &ErrInvalidParams{Bands: bands, Rows: l.r, NumPerm: l.h}
	}

	seen := make(map[string]struct{})
	var candidates []string
	for i := range bands {
		rng := l.hashranges[i]
		keys, err := l.hashtables[i].Get(ctx, bandKey(sig, rng[0], rng[1]))
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				candidates = append(candidates, key)
			}
		}
	}
	return candidates, nil
}

// Contains reports whether the record key is present in the index.
func (l *MinHashLSH) Contains(ctx context.Context, key string) (bool, error) {
	return l.keyTable.Has(ctx, key)
}

// Remove deletes a record key and its band hashtable memberships. Band
// hashtable entries emptied by the removal are pruned so that size and
// emptiness queries stay accurate. Removing an absent key fails with
// ErrNotFound.
func (l *MinHashLSH) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := l.remove(ctx, key)
	l.metrics.RecordRemove(time.Since(start), err)
	l.logger.LogRemove(ctx, key, err)
	return err
}

func (l *MinHashLSH) remove(ctx context.Context, key string) error {
	ok, err := l.keyTable.Has(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	bandKeys, err := l.keyTable.Get(ctx, key)
	if err != nil {
		return err
	}
	for i, bk := range bandKeys {
		ht := l.hashtables[i]
		if err := ht.RemoveValue(ctx, bk, key); err != nil {
			return err
		}
		members, err := ht.Get(ctx, bk)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			if err := ht.Remove(ctx, bk); err != nil {
				return err
			}
		}
	}
	return l.keyTable.Remove(ctx, key)
}

// IsEmpty reports whether the index is empty, defined as any band hashtable
// reporting size zero. The key table is deliberately not consulted; this
// mirrors the index's historical behavior, on which consumers rely.
func (l *MinHashLSH) IsEmpty(ctx context.Context) (bool, error) {
	for _, ht := range l.hashtables {
		n, err := ht.Size(ctx)
		if err != nil {
			return false, err
		}
		if n == 0 {
			return true, nil
		}
	}
	return false, nil
}

// Counts returns, per band, the number of record keys stored under each band
// key. The result is memoized until the next call; the memo is transient and
// never part of a snapshot.
func (l *MinHashLSH) Counts(ctx context.Context) ([]map[string]int, error) {
	counts := make([]map[string]int, len(l.hashtables))
	for i, ht := range l.hashtables {
		c, err := ht.ItemCounts(ctx)
		if err != nil {
			return nil, err
		}
		counts[i] = c
	}

	l.countsMu.Lock()
	l.counts = counts
	l.countsMu.Unlock()

	return counts, nil
}

// QueryByKeys returns the record keys that collide in at least one band with
// any of the given already-inserted keys, excluding the given keys
// themselves. The stored band keys are fetched with one batched read and the
// member sets are unioned through backend references, so a networked backend
// computes the union server-side.
func (l *MinHashLSH) QueryByKeys(ctx context.Context, keys ...string) ([]string, error) {
	uniq := dedupe(keys)

	bandKeyLists, err := l.keyTable.GetMany(ctx, uniq...)
	if err != nil {
		return nil, err
	}

	type bandSlot struct {
		band int
		key  string
	}
	seen := make(map[bandSlot]struct{})
	var refs []kvstore.Reference
	for _, bandKeys := range bandKeyLists {
		for i, bk := range bandKeys {
			slot := bandSlot{band: i, key: bk}
			if _, ok := seen[slot]; ok {
				continue
			}
			seen[slot] = struct{}{}

			ref, err := l.hashtables[i].Reference(ctx, bk)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}

	union, err := l.hashtables[0].UnionReferences(ctx, refs...)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(uniq))
	for _, k := range uniq {
		exclude[k] = struct{}{}
	}
	out := union[:0]
	for _, k := range union {
		if _, ok := exclude[k]; !ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// SubsetCounts reports, per band, how many of the given keys produced each
// band key. It builds one-off in-process hashtables over just those keys, a
// cheap way to estimate agreement among a subset without touching the full
// index.
func (l *MinHashLSH) SubsetCounts(ctx context.Context, keys ...string) ([]map[string]int, error) {
	uniq := dedupe(keys)

	tables := make([]kvstore.UnorderedStore, l.b)
	for i := range tables {
		tables[i] = kvstore.NewMemorySet()
	}

	bandKeyLists, err := l.keyTable.GetMany(ctx, uniq...)
	if err != nil {
		return nil, err
	}
	for j, bandKeys := range bandKeyLists {
		for i, bk := range bandKeys {
			if err := tables[i].Insert(ctx, bk, uniq[j]); err != nil {
				return nil, err
			}
		}
	}

	counts := make([]map[string]int, len(tables))
	for i, table := range tables {
		c, err := table.ItemCounts(ctx)
		if err != nil {
			return nil, err
		}
		counts[i] = c
	}
	return counts, nil
}

// BandKeys returns the stored band keys for each given record key, in band
// order, using one batched read. Absent keys yield empty slices.
func (l *MinHashLSH) BandKeys(ctx context.Context, keys ...string) ([][]string, error) {
	return l.keyTable.GetMany(ctx, keys...)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
