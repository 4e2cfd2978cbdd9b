package minlsh

import (
	"errors"
	"fmt"

	"github.com/hupe1980/minlsh/kvstore"
)

var (
	// ErrValidation is the root of all construction/argument errors.
	// Every typed validation error below unwraps to it.
	ErrValidation = errors.New("invalid parameter")

	// ErrDuplicateKey is returned when inserting a record key that is
	// already present in the index.
	ErrDuplicateKey = errors.New("key already exists")

	// ErrNotFound is returned when removing or looking up an absent record
	// key. It is the storage layer's sentinel, re-exported so callers only
	// deal with this package's error surface.
	ErrNotFound = kvstore.ErrKeyNotFound
)

// ErrSignatureLengthMismatch indicates a signature whose length differs from
// the index's permutation count.
type ErrSignatureLengthMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrSignatureLengthMismatch) Error() string {
	return fmt.Sprintf("signature length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrSignatureLengthMismatch) Unwrap() error { return ErrValidation }

// ErrInvalidThreshold indicates a similarity threshold outside [0.0, 1.0].
type ErrInvalidThreshold struct {
	Threshold float64
}

func (e *ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("threshold must be in [0.0, 1.0]: got %v", e.Threshold)
}

func (e *ErrInvalidThreshold) Unwrap() error { return ErrValidation }

// ErrInvalidWeights indicates false-positive/false-negative weights outside
// [0.0, 1.0] or not summing to 1.0.
type ErrInvalidWeights struct {
	FalsePositive float64
	FalseNegative float64
}

func (e *ErrInvalidWeights) Error() string {
	return fmt.Sprintf("weights must be in [0.0, 1.0] and sum to 1.0: got (%v, %v)", e.FalsePositive, e.FalseNegative)
}

func (e *ErrInvalidWeights) Unwrap() error { return ErrValidation }

// ErrInvalidParams indicates an explicit (bands, rows) pair that does not
// fit the permutation count.
type ErrInvalidParams struct {
	Bands   int
	Rows    int
	NumPerm int
}

func (e *ErrInvalidParams) Error() string {
	return fmt.Sprintf("bands*rows (%d*%d) must be positive and not exceed the number of permutations (%d)", e.Bands, e.Rows, e.NumPerm)
}

func (e *ErrInvalidParams) Unwrap() error { return ErrValidation }
