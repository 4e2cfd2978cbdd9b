// Package blobstore abstracts where snapshots are kept.
//
// Implementations exist for memory (tests), the local filesystem, S3 and
// MinIO/S3-compatible object storage.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store reads and writes named blobs.
type Store interface {
	// Put writes a blob atomically; a concurrent Get sees either the old
	// or the new content, never a mix.
	Put(ctx context.Context, name string, data []byte) error

	// Get returns the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting an absent blob is a no-op.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
