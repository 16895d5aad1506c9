package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func TestSnapshotTake(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "docker-compose.yml")
	data := []byte("services: {}\n")
	require.NoError(t, os.WriteFile(manifest, data, 0o640))

	store := SnapshotStore{Now: clock(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))}
	id := uuid.MustParse("1234abcd-0000-4000-8000-000000000000")

	snap, err := store.Take(manifest, data, 0o640, id)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "docker-compose.yml.backup.2026-01-02_150405.1234abcd"), snap.Path)
	got, err := os.ReadFile(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := os.Stat(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestSnapshotSeparateDir(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	manifest := filepath.Join(dir, "compose.yaml")

	store := SnapshotStore{Dir: backups}
	snap, err := store.Take(manifest, []byte("x: 1\n"), 0o644, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, backups, filepath.Dir(snap.Path))

	list, err := store.List(manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{snap.Path}, list)
}

func TestSnapshotRotation(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "docker-compose.yml")
	store := SnapshotStore{MaxBackups: 2, Now: clock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))}

	var taken []string
	for i := 0; i < 4; i++ {
		snap, err := store.Take(manifest, []byte("v\n"), 0o644, uuid.New())
		require.NoError(t, err)
		taken = append(taken, snap.Path)
	}

	list, err := store.List(manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{taken[3], taken[2]}, list)
}

func TestSnapshotNoRotationByDefault(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "docker-compose.yml")
	store := SnapshotStore{Now: clock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))}

	for i := 0; i < 3; i++ {
		_, err := store.Take(manifest, []byte("v\n"), 0o644, uuid.New())
		require.NoError(t, err)
	}
	list, err := store.List(manifest)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSnapshotRestore(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "docker-compose.yml")
	original := []byte("services:\n  web:\n    image: nginx\n")
	require.NoError(t, os.WriteFile(manifest, original, 0o644))

	store := SnapshotStore{}
	snap, err := store.Take(manifest, original, 0o644, uuid.New())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(manifest, []byte("services: {}\n"), 0o644))
	require.NoError(t, store.Restore(snap))

	got, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// A tampered backup is refused.
	require.NoError(t, os.WriteFile(snap.Path, []byte("tampered\n"), 0o644))
	assert.Error(t, store.Restore(snap))
}

func TestListMissingDir(t *testing.T) {
	store := SnapshotStore{Dir: filepath.Join(t.TempDir(), "nope")}
	list, err := store.List("/x/docker-compose.yml")
	require.NoError(t, err)
	assert.Empty(t, list)
}
