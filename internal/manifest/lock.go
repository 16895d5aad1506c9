//go:build !windows

package manifest

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Lock is an advisory flock(2) on <manifest>.lock held for one
// transaction. The lock file is left in place.
type Lock struct {
	path string
	file *os.File
}

// LockPath returns the lock file used for manifestPath.
func LockPath(manifestPath string) string {
	return manifestPath + ".lock"
}

// AcquireLock takes the manifest lock without blocking. ErrLockHeld means
// another invocation is mid-transaction.
func AcquireLock(manifestPath string) (*Lock, error) {
	path := LockPath(manifestPath)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", manifestPath, ErrLockHeld)
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	// Owner details for whoever finds the lock held.
	if err := file.Truncate(0); err == nil {
		fmt.Fprintf(file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
