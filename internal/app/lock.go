package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrStorageLocked is returned when another process crawls into the same
// storage dir.
var ErrStorageLocked = errors.New("storage dir is locked by another crawl")

const lockFileName = ".moviegraph.lock"

// storageLock guards a storage dir for the lifetime of one crawl run.
type storageLock struct {
	path string
	lock *flock.Flock
}

func acquireStorageLock(dir string) (*storageLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	path := filepath.Join(dir, lockFileName)
	l := &storageLock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageLocked, dir)
	}
	return l, nil
}

func (l *storageLock) release() error {
	if l == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
