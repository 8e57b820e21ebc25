package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/zeebo/xxh3"

	"mediasort/internal/failure"
)

// LockPath returns the lock file guarding destination inside dir.
func LockPath(dir, destination string) string {
	return filepath.Join(dir, fmt.Sprintf("%016x.lock", xxh3.HashString(destination)))
}

// acquireLock takes the exclusive destination lock without blocking.
func acquireLock(dir, destination string) (*flock.Flock, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "lock", "create lock directory", err)
	}
	lock := flock.New(LockPath(dir, destination))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "lock", "acquire destination lock", err)
	}
	if !ok {
		return nil, failure.Wrap(failure.ErrLocked, "lock", fmt.Sprintf("another migration into %s is running", destination), nil)
	}
	return lock, nil
}
