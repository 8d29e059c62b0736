// Package lock guards the target directory against a second reconciler
// instance on the same host.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"quadsync/internal/config"
	"quadsync/pkg/logging"
)

const subsystem = "Lock"

// InstanceLock is an exclusive, non-blocking file lock.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path, creating its directory when needed. A
// lock held by another process is a configuration error: the operator must
// stop the other instance first.
func Acquire(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, config.NewConfigurationError("lock", path, "cannot create lock directory", err)
	}

	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, config.NewConfigurationError("lock", path, "cannot acquire lock", err)
	}
	if !ok {
		return nil, config.NewConfigurationError("lock", path,
			"another quadsync instance is already running", nil)
	}

	logging.Debug(subsystem, "Acquired %s", path)
	return &InstanceLock{path: path, lock: l}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release drops the lock. The lock file itself is left in place.
func (l *InstanceLock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	logging.Debug(subsystem, "Released %s", l.path)
	return nil
}
