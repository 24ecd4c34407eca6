package ratelimit

import (
	"context"
	"errors"
	"fmt"
)

// Store defines the interface for per-key counter storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the counter for key. found is false when no record exists or
	// the record's window has elapsed; value is then ignored by callers.
	Get(ctx context.Context, key string) (value int64, found bool, err error)

	// Update sets the counter for key. A new record starts its window now; an
	// existing record keeps its original window start.
	Update(ctx context.Context, key string, value int64) error

	// Del removes the record for key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
}

// StoreError reports a storage backend failure. It is the only error kind a
// Store returns; a missing key is reported through found, never as an error.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// NewStoreError wraps err as a StoreError for the given operation and key.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ratelimit store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// asStoreError makes sure errors leaving the limiter are StoreErrors even when a
// third-party Store returns plain errors.
func asStoreError(op, key string, err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	return NewStoreError(op, key, err)
}
