package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = ".anidataset.lock"
)

// DirLock manages a file-based lock on an export directory so that two runs
// (for example a scheduled one and a manual one) never write the same files.
type DirLock struct {
	lock *flock.Flock
	path string
}

// NewDirLock creates a new lock for the given output directory, creating the
// directory if needed.
func NewDirLock(dir string) (*DirLock, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute output path: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", absDir, err)
	}
	lockPath := filepath.Join(absDir, lockFileName)
	return &DirLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the directory lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *DirLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another anidataset process is writing to this directory, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the directory lock.
func (l *DirLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *DirLock) Path() string {
	return l.path
}
