package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/justyntemme/storybook/internal/apperr"
)

// LockFile is the lock file name inside the data directory.
const LockFile = "storybook.lock"

// Lock guards a data directory against a second reader process.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the data directory lock without blocking. It returns a
// conflict error if another process holds it.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "create data directory")
	}
	path := filepath.Join(dir, LockFile)
	l := &Lock{path: path, lock: flock.New(path)}

	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("acquire lock: %w", err), apperr.CodeStorage, "lock data directory")
	}
	if !ok {
		return nil, apperr.Conflictf("another storybook is already using %s", dir)
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the data directory.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
