// Package runlock enforces single ownership of a partition. Partitions divide
// the manifest so processes never share items, but accidentally launching the
// same partition twice would break that guarantee; a per-partition flock file
// turns the second launch into an immediate, explicit failure.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another process already owns the partition.
var ErrLocked = errors.New("partition already locked")

// Lock is an advisory file lock scoped to one partition index.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock rooted in dir for the given partition index. The lock
// is not held until Acquire succeeds.
func New(dir string, partitionIndex int) *Lock {
	path := filepath.Join(dir, fmt.Sprintf("partition-%d.lock", partitionIndex))
	return &Lock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking. A held lock yields ErrLocked so
// launchers can distinguish contention from I/O failure.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire partition lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.path)
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location for diagnostics.
func (l *Lock) Path() string {
	return l.path
}
