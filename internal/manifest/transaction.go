package manifest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// State is where a transaction stands.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateUnchanged // the service was already present
	StateAborted   // failed before the manifest was replaced
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateCommitted:
		return "committed"
	case StateUnchanged:
		return "unchanged"
	case StateAborted:
		return "aborted"
	case StateRolledBack:
		return "rolled back"
	default:
		return "pending"
	}
}

// Transaction scopes one attempt to add a service to a manifest. It is
// created per attempt and never shared.
type Transaction struct {
	ID           uuid.UUID
	ManifestPath string
	Service      string
	Fragment     *yaml.Node
	Expect       Expectation

	Snapshot Snapshot
	Warnings []string
	Created  []string // files this attempt created outside the manifest

	state     State
	committed [sha256.Size]byte
}

// NewTransaction prepares to insert fragment, a one-service mapping in
// YAML text, into the manifest at manifestPath. A symlinked manifest is
// resolved so the lock, snapshot and rename all act on the real file.
func NewTransaction(manifestPath, fragment string) (*Transaction, error) {
	name, node, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	manifestPath, err = Resolve(manifestPath)
	if err != nil {
		return nil, err
	}
	exp, err := ExpectationFor(node)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		ID:           uuid.New(),
		ManifestPath: manifestPath,
		Service:      name,
		Fragment:     node,
		Expect:       exp,
	}, nil
}

// State reports the transaction's current state.
func (tx *Transaction) State() State {
	return tx.state
}

// Track records a file created for this attempt so rollback removes it.
func (tx *Transaction) Track(path string) {
	tx.Created = append(tx.Created, path)
}

// BackupPath is the snapshot location, or "" before one was taken.
func (tx *Transaction) BackupPath() string {
	return tx.Snapshot.Path
}

// Manager runs transactions against manifests on disk.
type Manager struct {
	Verifier  Verifier
	Snapshots SnapshotStore
	Logger    *slog.Logger
	NoLock    bool
}

func (m *Manager) log() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (m *Manager) verifier() Verifier {
	if m.Verifier != nil {
		return m.Verifier
	}
	return ComposeVerifier{}
}

// Plan is the outcome of a dry run.
type Plan struct {
	Service  string
	Exists   bool
	Before   []byte
	After    []byte
	Preview  Preview
	Warnings []string
}

// merged is the result of applying a fragment in memory.
type merged struct {
	before   []byte
	after    []byte
	mode     os.FileMode
	exists   bool
	warnings []string
}

// merge reads and checks the manifest and applies the fragment to a copy
// of its tree. Nothing is written.
func (m *Manager) merge(ctx context.Context, tx *Transaction) (merged, error) {
	info, err := os.Stat(tx.ManifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return merged{}, fmt.Errorf("%s: %w", tx.ManifestPath, ErrManifestNotFound)
		}
		return merged{}, err
	}
	before, err := os.ReadFile(tx.ManifestPath)
	if err != nil {
		return merged{}, fmt.Errorf("reading manifest: %w", err)
	}
	if _, err := m.verifier().Load(ctx, tx.ManifestPath, before); err != nil {
		return merged{}, err
	}

	doc, err := Parse(before)
	if err != nil {
		return merged{}, err
	}
	res := merged{before: before, mode: info.Mode().Perm()}
	if doc.HasService(tx.Service) {
		res.exists = true
		res.after = before
		return res, nil
	}

	if _, err := doc.InsertService(cloneNode(tx.Fragment)); err != nil {
		return merged{}, err
	}
	for _, dep := range doc.PruneDependsOn(tx.Service) {
		res.warnings = append(res.warnings, fmt.Sprintf("dropped depends_on %q: no such service in %s", dep, tx.ManifestPath))
	}
	res.after, err = doc.Render(before)
	if err != nil {
		return merged{}, err
	}
	return res, nil
}

// Plan computes what Commit would write, verifies it in memory and
// returns a diff. It creates no files.
func (m *Manager) Plan(ctx context.Context, tx *Transaction) (Plan, error) {
	res, err := m.merge(ctx, tx)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Service: tx.Service, Exists: res.exists, Before: res.before, After: res.after, Warnings: res.warnings}
	if res.exists {
		return plan, nil
	}

	project, err := m.verifier().Load(ctx, tx.ManifestPath, res.after)
	if err != nil {
		return plan, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if err := tx.Expect.Check(project); err != nil {
		return plan, err
	}

	plan.Preview, err = NewPreview(tx.ManifestPath, res.before, res.after)
	return plan, err
}

// Commit runs the transaction: lock, check, snapshot, write a temp file,
// verify it, then rename it over the manifest. On any error before the
// rename the manifest is untouched and the temp file is gone. An existing
// service leaves the transaction in StateUnchanged with a nil error.
func (m *Manager) Commit(ctx context.Context, tx *Transaction) (err error) {
	if tx.state != StatePending {
		return fmt.Errorf("transaction %s is %s", tx.ID, tx.state)
	}
	log := m.log().With("tx", tx.ID.String(), "manifest", tx.ManifestPath, "service", tx.Service)

	defer func() {
		if err != nil {
			tx.state = StateAborted
			log.Debug("transaction aborted", "error", err)
		}
	}()

	if !m.NoLock {
		lock, err := AcquireLock(tx.ManifestPath)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	res, err := m.merge(ctx, tx)
	if err != nil {
		return err
	}
	tx.Warnings = append(tx.Warnings, res.warnings...)
	if res.exists {
		tx.state = StateUnchanged
		log.Debug("service already present")
		return nil
	}

	tx.Snapshot, err = m.Snapshots.Take(tx.ManifestPath, res.before, res.mode, tx.ID)
	if err != nil {
		return err
	}
	log.Debug("snapshot taken", "backup", tx.Snapshot.Path)

	tmp, err := writeTemp(tx.ManifestPath, res.after, res.mode)
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmp)
		}
	}()

	written, err := os.ReadFile(tmp)
	if err != nil {
		return fmt.Errorf("re-reading temp file: %w", err)
	}
	project, err := m.verifier().Load(ctx, tx.ManifestPath, written)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if err := tx.Expect.Check(project); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted before commit: %w", err)
	}

	if err := os.Rename(tmp, tx.ManifestPath); err != nil {
		return fmt.Errorf("replacing manifest: %w", err)
	}
	renamed = true
	tx.committed = sha256.Sum256(written)
	tx.state = StateCommitted
	log.Debug("manifest committed")
	return nil
}

// Rollback undoes a committed transaction: the snapshot is restored if the
// manifest still holds exactly what this transaction wrote, and tracked
// files are removed. A manifest edited since the commit is left alone and
// ErrManifestChanged is returned.
func (m *Manager) Rollback(ctx context.Context, tx *Transaction) error {
	if tx.state != StateCommitted {
		return fmt.Errorf("transaction %s is %s: %w", tx.ID, tx.state, ErrNotCommitted)
	}
	log := m.log().With("tx", tx.ID.String(), "manifest", tx.ManifestPath)

	if !m.NoLock {
		lock, err := AcquireLock(tx.ManifestPath)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	current, err := os.ReadFile(tx.ManifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	if sha256.Sum256(current) != tx.committed {
		return fmt.Errorf("%s: %w; restore manually from %s", tx.ManifestPath, ErrManifestChanged, tx.Snapshot.Path)
	}
	if err := m.Snapshots.Restore(tx.Snapshot); err != nil {
		return err
	}
	tx.state = StateRolledBack
	log.Debug("manifest restored", "backup", tx.Snapshot.Path)

	return m.Discard(tx)
}

// Discard removes the files tracked by tx. Missing files are ignored.
func (m *Manager) Discard(tx *Transaction) error {
	var errs []error
	for i := len(tx.Created) - 1; i >= 0; i-- {
		if err := os.Remove(tx.Created[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	tx.Created = nil
	return errors.Join(errs...)
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		c.Content[i] = cloneNode(child)
	}
	return &c
}
