package minlsh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/minlsh/blobstore"
	"github.com/hupe1980/minlsh/kvstore"
	"github.com/hupe1980/minlsh/snapshot"
)

// snapshotState is the persisted form of a MinHashLSH index. It carries the
// band parameters, the storage configuration and the store namespace names;
// table contents are included only for the in-process backend, since a
// networked backend keeps its data server-side and is re-attached by name on
// load. Transient derived caches (memoized counts) are never persisted.
//
// Keys and values are stored as byte slices because band keys are raw bytes,
// not UTF-8 text.
type snapshotState struct {
	NumPerm int            `json:"num_perm"`
	Bands   int            `json:"bands"`
	Rows    int            `json:"rows"`
	Storage kvstore.Config `json:"storage"`

	KeyTableName   string   `json:"key_table_name,omitempty"`
	HashtableNames []string `json:"hashtable_names,omitempty"`

	KeyTable   []tableEntry   `json:"key_table,omitempty"`
	Hashtables [][]tableEntry `json:"hashtables,omitempty"`
}

type tableEntry struct {
	Key  []byte   `json:"k"`
	Vals [][]byte `json:"v"`
}

func dumpEntries(ctx context.Context, d kvstore.Dumper) ([]tableEntry, error) {
	data, err := d.Dump(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]tableEntry, 0, len(data))
	for k, vals := range data {
		e := tableEntry{Key: []byte(k), Vals: make([][]byte, len(vals))}
		for i, v := range vals {
			e.Vals[i] = []byte(v)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	return entries, nil
}

func restoreEntries(ctx context.Context, r kvstore.Restorer, entries []tableEntry) error {
	data := make(map[string][]string, len(entries))
	for _, e := range entries {
		vals := make([]string, len(e.Vals))
		for i, v := range e.Vals {
			vals[i] = string(v)
		}
		data[string(e.Key)] = vals
	}
	return r.Restore(ctx, data)
}

// WriteSnapshot persists the index to w in the self-describing snapshot
// format. The memoized counts cache is excluded; for a networked backend
// only the store names and connection configuration are written.
func (l *MinHashLSH) WriteSnapshot(ctx context.Context, w io.Writer, optFns ...snapshot.Option) error {
	err := l.writeSnapshot(ctx, w, optFns...)
	l.logger.LogSnapshot(ctx, "write", "", err)
	return err
}

func (l *MinHashLSH) writeSnapshot(ctx context.Context, w io.Writer, optFns ...snapshot.Option) error {
	state := snapshotState{
		NumPerm: l.h,
		Bands:   l.b,
		Rows:    l.r,
		Storage: l.storage,
	}

	if named, ok := l.keyTable.(kvstore.Named); ok {
		state.KeyTableName = named.Name()
		state.HashtableNames = make([]string, len(l.hashtables))
		for i, ht := range l.hashtables {
			state.HashtableNames[i] = ht.(kvstore.Named).Name()
		}
	}

	if dumper, ok := l.keyTable.(kvstore.Dumper); ok {
		entries, err := dumpEntries(ctx, dumper)
		if err != nil {
			return err
		}
		state.KeyTable = entries

		state.Hashtables = make([][]tableEntry, len(l.hashtables))
		for i, ht := range l.hashtables {
			entries, err := dumpEntries(ctx, ht.(kvstore.Dumper))
			if err != nil {
				return err
			}
			state.Hashtables[i] = entries
		}
	}

	return snapshot.Write(w, state, optFns...)
}

// LoadSnapshot reconstructs an index from a snapshot written by
// WriteSnapshot. The storage configuration and band parameters come from the
// snapshot itself; a networked backend is reconnected and re-attached to its
// server-side data by name. Options may still override ambient concerns such
// as the logger or metrics collector.
func LoadSnapshot(ctx context.Context, r io.Reader, optFns ...Option) (*MinHashLSH, error) {
	var state snapshotState
	if err := snapshot.Read(r, &state); err != nil {
		return nil, err
	}
	if state.Bands < 1 || state.Rows < 1 {
		return nil, fmt.Errorf("%w: snapshot has invalid band parameters (%d, %d)", ErrValidation, state.Bands, state.Rows)
	}

	optFns = append(optFns,
		WithNumPerm(state.NumPerm),
		WithParams(state.Bands, state.Rows),
		WithStorage(state.Storage),
		func(o *options) {
			o.keyTableName = state.KeyTableName
			o.hashtableNames = state.HashtableNames
		},
	)
	l, err := New(optFns...)
	if err != nil {
		return nil, err
	}

	if state.KeyTable != nil {
		restorer, ok := l.keyTable.(kvstore.Restorer)
		if !ok {
			return nil, fmt.Errorf("%w: snapshot carries table contents but backend %s cannot restore them", ErrValidation, state.Storage.Backend)
		}
		if err := restoreEntries(ctx, restorer, state.KeyTable); err != nil {
			return nil, err
		}
		for i, entries := range state.Hashtables {
			if err := restoreEntries(ctx, l.hashtables[i].(kvstore.Restorer), entries); err != nil {
				return nil, err
			}
		}
	}

	l.logger.LogSnapshot(ctx, "load", "", nil)
	return l, nil
}

// SaveSnapshotBlob writes a snapshot to a blob store under the given name.
func (l *MinHashLSH) SaveSnapshotBlob(ctx context.Context, store blobstore.Store, name string, optFns ...snapshot.Option) error {
	var buf bytes.Buffer
	if err := l.writeSnapshot(ctx, &buf, optFns...); err != nil {
		l.logger.LogSnapshot(ctx, "write", name, err)
		return err
	}
	err := store.Put(ctx, name, buf.Bytes())
	l.logger.LogSnapshot(ctx, "write", name, err)
	return err
}

// LoadSnapshotBlob reconstructs an index from a snapshot stored in a blob
// store.
func LoadSnapshotBlob(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*MinHashLSH, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return LoadSnapshot(ctx, bytes.NewReader(data), optFns...)
}
