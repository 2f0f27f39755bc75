// Package storage provides the file persistence used by ytscribe: atomic
// output writes, advisory file locks and the batch progress store.
package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrWriteFailed indicates an output file could not be written.
	ErrWriteFailed = errors.New("storage: write failed")
	// ErrStorageCorrupt indicates a persisted file could not be decoded.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "lock", "remove").
	Op string
	// Entity is the kind of file involved ("csv", "transcript", "progress").
	Entity string
	// ID is the file path if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// writeError builds a StorageError that matches both ErrWriteFailed and cause.
func writeError(entity, path string, cause error) error {
	return &StorageError{
		Op:     "write",
		Entity: entity,
		ID:     path,
		Err:    fmt.Errorf("%w: %w", ErrWriteFailed, cause),
	}
}
