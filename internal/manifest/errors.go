package manifest

import "errors"

var (
	ErrManifestNotFound = errors.New("manifest not found")
	ErrInvalidManifest  = errors.New("manifest is not a valid compose file")
	ErrServiceExists    = errors.New("service already exists in manifest")
	ErrNoNetworks       = errors.New("manifest declares no networks")
	ErrLockHeld         = errors.New("manifest is locked by another process")
	ErrVerification     = errors.New("merged manifest failed verification")
	ErrManifestChanged  = errors.New("manifest changed since commit")
	ErrNotCommitted     = errors.New("transaction has not committed")
	ErrBadFragment      = errors.New("fragment must be a single service mapping")
)
