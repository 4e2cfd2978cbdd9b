package minlsh

import (
	"context"

	"github.com/hupe1980/minlsh/kvstore"
)

// InsertionSession batches index inserts through the storage backend's
// buffered insertion mode, amortizing per-write overhead during bulk loads
// on networked backends.
//
// One session is one logical writer; it is not safe for concurrent use.
// Close flushes all queued writes exactly once and must run on every exit
// path, normal or not:
//
//	sess := index.InsertionSession()
//	defer sess.Close(ctx)
//	for key, sig := range records {
//	    if err := sess.Insert(ctx, key, sig); err != nil {
//	        return err
//	    }
//	}
//	return sess.Close(ctx)
//
// While the session is open, queued inserts have no visibility guarantee.
// In particular the duplicate-key check only sees committed state: a key
// inserted twice within one session is not rejected.
type InsertionSession struct {
	lsh      *MinHashLSH
	keyTable kvstore.BulkSession
	tables   []kvstore.BulkSession
	count    int
	closed   bool
}

// InsertionSession starts a buffered insertion session against the index's
// storage backend.
func (l *MinHashLSH) InsertionSession() *InsertionSession {
	tables := make([]kvstore.BulkSession, len(l.hashtables))
	for i, ht := range l.hashtables {
		tables[i] = ht.BulkSession()
	}
	return &InsertionSession{
		lsh:      l,
		keyTable: l.keyTable.BulkSession(),
		tables:   tables,
	}
}

// Insert queues a record key and its signature for insertion.
func (s *InsertionSession) Insert(ctx context.Context, key string, sig Signature) error {
	if s.closed {
		return kvstore.ErrSessionClosed
	}
	if err := s.lsh.validate(sig); err != nil {
		return err
	}
	ok, err := s.lsh.keyTable.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return ErrDuplicateKey
	}

	bandKeys := s.lsh.bandKeys(sig)
	for _, bk := range bandKeys {
		if err := s.keyTable.Insert(ctx, key, bk); err != nil {
			return err
		}
	}
	for i, bk := range bandKeys {
		if err := s.tables[i].Insert(ctx, bk, key); err != nil {
			return err
		}
	}
	s.count++
	return nil
}

// Close flushes all queued inserts. Closing an already-closed session is a
// no-op, so it is safe to both defer Close and call it explicitly to observe
// the flush error.
func (s *InsertionSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.keyTable.Close(ctx)
	for _, table := range s.tables {
		if cerr := table.Close(ctx); err == nil {
			err = cerr
		}
	}
	s.lsh.logger.LogBulkInsert(ctx, s.count, err)
	return err
}
