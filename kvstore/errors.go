package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when an operation requires a key that is
	// not present in the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrForeignReference is returned when UnionReferences receives a
	// reference issued by a different backend.
	ErrForeignReference = errors.New("reference belongs to a different backend")

	// ErrSessionClosed is returned when inserting into a closed bulk
	// session.
	ErrSessionClosed = errors.New("bulk session already closed")
)

// BackendError wraps an opaque failure surfaced from a storage backend,
// e.g. lost connectivity. The original error is available via errors.Unwrap.
type BackendError struct {
	Backend string
	cause   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.cause)
}

func (e *BackendError) Unwrap() error { return e.cause }

func wrapBackend(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, cause: err}
}
