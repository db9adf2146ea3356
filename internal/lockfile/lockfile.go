package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyLocked reports that another orchestrator instance holds the lock.
var ErrAlreadyLocked = errors.New("another orchestrator instance is already running")

// Guard holds the exclusive instance lock. It must stay held for the whole
// process lifetime; releasing it early would let a second orchestrator fight
// over the same broadcast and ingest identities.
type Guard struct {
	lock *flock.Flock
	path string
}

// Acquire takes a non-blocking exclusive advisory lock on path. It fails
// immediately with ErrAlreadyLocked when the lock is held elsewhere; there
// is no retry or wait.
func Acquire(path string) (*Guard, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyLocked, path)
	}
	return &Guard{lock: lock, path: path}, nil
}

// Path returns the lock file location.
func (g *Guard) Path() string {
	return g.path
}

// Release drops the lock. Intended for tests; in production the lock is
// held until the process exits.
func (g *Guard) Release() error {
	if g == nil || g.lock == nil {
		return nil
	}
	return g.lock.Unlock()
}
