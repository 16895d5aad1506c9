package manifest

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	backupSuffix     = ".backup"
	backupTimeFormat = "2006-01-02_150405"
)

// Snapshot is a byte-identical copy of a manifest taken before mutation.
type Snapshot struct {
	Path   string
	Source string
	Sum    [sha256.Size]byte
	Taken  time.Time
	Mode   os.FileMode
}

// SnapshotStore writes snapshots next to the manifest, or into Dir when
// set, and keeps at most MaxBackups of them. MaxBackups <= 0 keeps all.
type SnapshotStore struct {
	Dir        string
	MaxBackups int
	Now        func() time.Time
}

func (s SnapshotStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s SnapshotStore) dir(manifestPath string) string {
	if s.Dir != "" {
		return s.Dir
	}
	return filepath.Dir(manifestPath)
}

func (s SnapshotStore) prefix(manifestPath string) string {
	return filepath.Base(manifestPath) + backupSuffix + "."
}

// Take copies data, the current manifest content, to a new snapshot file
// named <manifest>.backup.<timestamp>.<id>.
func (s SnapshotStore) Take(manifestPath string, data []byte, mode os.FileMode, id uuid.UUID) (Snapshot, error) {
	dir := s.dir(manifestPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("creating backup directory: %w", err)
	}

	taken := s.now()
	name := s.prefix(manifestPath) + taken.Format(backupTimeFormat) + "." + id.String()[:8]
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm())
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating backup: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return Snapshot{}, fmt.Errorf("writing backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return Snapshot{}, fmt.Errorf("syncing backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("closing backup: %w", err)
	}

	snap := Snapshot{
		Path:   path,
		Source: manifestPath,
		Sum:    sha256.Sum256(data),
		Taken:  taken,
		Mode:   mode,
	}
	s.rotate(manifestPath, path)
	return snap, nil
}

// List returns snapshot paths for manifestPath, newest first.
func (s SnapshotStore) List(manifestPath string) ([]string, error) {
	dir := s.dir(manifestPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	prefix := s.prefix(manifestPath)
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// rotate removes the oldest snapshots beyond MaxBackups. keep is never
// removed. Failures are ignored: the snapshot itself already succeeded.
func (s SnapshotStore) rotate(manifestPath, keep string) {
	if s.MaxBackups <= 0 {
		return
	}
	all, err := s.List(manifestPath)
	if err != nil {
		return
	}
	retained := 1
	for _, p := range all {
		if p == keep {
			continue
		}
		if retained < s.MaxBackups {
			retained++
			continue
		}
		os.Remove(p)
	}
}

// Restore atomically puts the snapshot content back at its source path.
func (s SnapshotStore) Restore(snap Snapshot) error {
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	if sha256.Sum256(data) != snap.Sum {
		return fmt.Errorf("backup %s does not match the snapshot taken", snap.Path)
	}
	return replaceFile(snap.Source, data, snap.Mode)
}
