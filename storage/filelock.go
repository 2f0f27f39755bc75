package storage

import (
	"context"
	"errors"
	"os"
	"time"
)

const lockPollInterval = 10 * time.Millisecond

// FileLock is an advisory, cross-process lock held on path + ".lock".
// It keeps two ytscribe runs from interleaving writes to the same progress file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a file lock. The lock is not acquired until Lock is called.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// Lock acquires an exclusive lock, polling until timeout elapses or ctx is done.
// Returns ErrLockTimeout if another process still holds it.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		if err := tryLock(f); err == nil {
			l.file = f
			return nil
		}
		select {
		case <-ctx.Done():
			f.Close()
			return ctx.Err()
		case <-deadline.C:
			f.Close()
			return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: ErrLockTimeout}
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock and removes the lock file. Unlocking a lock that
// is not held is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := unlock(l.file)
	err = errors.Join(err, l.file.Close())
	if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	l.file = nil
	if err != nil {
		return &StorageError{Op: "unlock", Entity: "file", ID: l.path, Err: err}
	}
	return nil
}
