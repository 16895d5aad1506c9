//go:build windows

package manifest

// Lock is a no-op on Windows.
type Lock struct{}

// LockPath returns the lock file used for manifestPath.
func LockPath(manifestPath string) string {
	return manifestPath + ".lock"
}

// AcquireLock always succeeds on Windows.
func AcquireLock(string) (*Lock, error) {
	return &Lock{}, nil
}

// Release is a no-op.
func (l *Lock) Release() error {
	return nil
}
