//go:build !windows

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitThroughSymlink(t *testing.T) {
	manifestPath, original := stack(t)
	target, err := filepath.EvalSymlinks(manifestPath)
	require.NoError(t, err)

	link := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.Symlink(manifestPath, link))

	m := &Manager{}
	tx := newTx(t, link)
	assert.Equal(t, target, tx.ManifestPath)

	require.NoError(t, m.Commit(context.Background(), tx))
	assert.Equal(t, StateCommitted, tx.State())

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link was replaced by a regular file")

	shared, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(shared), "\n  api:\n")
	assert.Equal(t, filepath.Dir(target), filepath.Dir(tx.BackupPath()))
	assert.Empty(t, tempFiles(t, filepath.Dir(link)))

	require.NoError(t, m.Rollback(context.Background(), tx))
	restored, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	info, err = os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}

func TestResolve(t *testing.T) {
	manifestPath, _ := stack(t)
	target, err := filepath.EvalSymlinks(manifestPath)
	require.NoError(t, err)

	link := filepath.Join(t.TempDir(), "compose.yml")
	require.NoError(t, os.Symlink(manifestPath, link))

	got, err := Resolve(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	missing := filepath.Join(t.TempDir(), "nope.yml")
	got, err = Resolve(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)

	got, err = Resolve("docker-compose.yml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.True(t, strings.HasSuffix(got, "docker-compose.yml"))
}
