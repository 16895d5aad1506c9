//go:build !windows

package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockExclusive(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "docker-compose.yml")

	first, err := AcquireLock(manifest)
	require.NoError(t, err)

	_, err = AcquireLock(manifest)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	again, err := AcquireLock(manifest)
	require.NoError(t, err)
	require.NoError(t, again.Release())

	assert.FileExists(t, LockPath(manifest))
}

func TestCommitLockHeld(t *testing.T) {
	manifestPath, _ := stack(t)
	held, err := AcquireLock(manifestPath)
	require.NoError(t, err)
	defer held.Release()

	tx := newTx(t, manifestPath)
	err = (&Manager{}).Commit(context.Background(), tx)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, StateAborted, tx.State())

	// NoLock skips the lock entirely.
	tx = newTx(t, manifestPath)
	require.NoError(t, (&Manager{NoLock: true}).Commit(context.Background(), tx))
}
