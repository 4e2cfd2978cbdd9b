// Package minlsh provides approximate similarity search over MinHash
// signatures using banded Locality-Sensitive Hashing.
//
// Given the MinHash signatures of a collection of sets, the index answers
// "which stored sets are likely to have Jaccard similarity above a threshold
// with this query set" without ever comparing the sets themselves. Results
// are candidates: the band construction bounds, but does not eliminate,
// false positives and false negatives.
//
// # Quick Start
//
//	ctx := context.Background()
//	index, _ := minlsh.New(minlsh.WithThreshold(0.8), minlsh.WithNumPerm(128))
//
//	_ = index.Insert(ctx, "doc1", sig1)
//	_ = index.Insert(ctx, "doc2", sig2)
//
//	candidates, _ := index.Query(ctx, querySig)
//
// # Band Parameters
//
// A signature of numPerm values is split into b bands of r rows each
// (b*r <= numPerm). By default b and r are chosen by minimizing a weighted
// sum of false positive and false negative probability at the configured
// threshold; WithWeights shifts the balance, e.g. toward recall:
//
//	index, _ := minlsh.New(minlsh.WithThreshold(0.8), minlsh.WithWeights(0.4, 0.6))
//
// WithParams pins the parameters explicitly and bypasses the optimization.
//
// # Storage Backends
//
// Index state lives behind the kvstore abstraction. The default backend is
// in-process; a Redis backend moves the state server-side so several
// processes can share one index:
//
//	index, _ := minlsh.New(minlsh.WithStorage(kvstore.Config{
//	    Backend: kvstore.BackendRedis,
//	    Redis:   &kvstore.RedisConfig{Addr: "localhost:6379"},
//	}))
//
// # Bulk Loading
//
// An InsertionSession batches inserts through the backend's buffered
// insertion mode:
//
//	sess := index.InsertionSession()
//	defer sess.Close(ctx)
//	for key, sig := range records {
//	    _ = sess.Insert(ctx, key, sig)
//	}
//	_ = sess.Close(ctx)
//
// # Persistence
//
// WriteSnapshot and LoadSnapshot serialize the index in a self-describing
// format with pluggable codecs and compression; SaveSnapshotBlob and
// LoadSnapshotBlob do the same against a blob store (local directory, S3,
// MinIO or in-memory).
package minlsh
