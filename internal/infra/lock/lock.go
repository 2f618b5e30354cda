// Package lock guards the single-instance invariant with an exclusive
// file lock.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/vietddude/launcher/internal/core/sentinel"
)

// ErrHeld is returned when another process holds the lock.
const ErrHeld = sentinel.Error("another instance holds the lock")

// Lock is an exclusive file lock at a fixed path.
type Lock struct {
	path string
	fl   *flock.Flock
}

func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. Acquiring a lock this
// instance already holds is a no-op, so a startup retry that re-runs
// the whole sequence does not contend with its own descriptor. When
// another process holds it, ErrHeld is returned immediately: the
// caller's backoff policy drives the retry cadence, not this package.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.fl != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock dir: %w", err)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", l.path, ErrHeld)
	}

	l.fl = fl
	return nil
}

// Release unlocks and closes the descriptor. The lock file stays on
// disk: removing it would race with a lock concurrently acquired by
// another process.
func (l *Lock) Release() error {
	if l.fl == nil {
		return nil
	}
	err := l.fl.Close()
	l.fl = nil
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return nil
}
