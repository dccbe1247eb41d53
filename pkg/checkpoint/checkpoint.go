// Package checkpoint persists ledger snapshots between runs, so long
// histories can be processed in resumable chunks. Checkpoints are keyed by a
// hash of the repository path: one directory serves many repositories without
// collisions.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/palvaroni/git-history-parser/pkg/persist"
	"github.com/palvaroni/git-history-parser/pkg/provenance"
)

// ErrNoCheckpoint is returned when no checkpoint exists for the repository.
var ErrNoCheckpoint = errors.New("no checkpoint found")

// ErrRepoMismatch is returned when a checkpoint's recorded repository path
// differs from the one being processed.
var ErrRepoMismatch = errors.New("checkpoint belongs to a different repository")

// repoKeyLen is the number of hex digits of the path hash used as the key.
const repoKeyLen = 16

// Meta describes what a checkpoint covers.
type Meta struct {
	RepoPath         string
	LastCommit       string
	CommitsProcessed int
	SavedAt          time.Time
}

// snapshot is the on-disk envelope: ledger state plus provenance of the
// checkpoint itself.
type snapshot struct {
	Meta  Meta
	State *provenance.LedgerState
}

// Manager stores and retrieves checkpoints for one repository.
type Manager struct {
	dir      string
	repoPath string
	codec    persist.Codec
}

// NewManager creates a checkpoint manager for repoPath rooted at dir.
func NewManager(dir, repoPath string) *Manager {
	return &Manager{
		dir:      dir,
		repoPath: repoPath,
		codec:    persist.LZ4Codec{},
	}
}

// DefaultDir returns the default checkpoint directory under the user's home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "githist-checkpoints")
	}

	return filepath.Join(home, ".githist", "checkpoints")
}

// RepoKey returns the checkpoint key for a repository path.
func RepoKey(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))

	return hex.EncodeToString(sum[:])[:repoKeyLen]
}

func (m *Manager) path() string {
	return filepath.Join(m.dir, "githist-"+RepoKey(m.repoPath)+m.codec.Extension())
}

// Exists reports whether a checkpoint is present for the repository.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path())

	return err == nil
}

// Save persists the ledger state and metadata, creating the checkpoint
// directory if needed.
func (m *Manager) Save(state *provenance.LedgerState, meta Meta) error {
	meta.RepoPath = m.repoPath
	meta.SavedAt = time.Now().UTC()

	err := os.MkdirAll(m.dir, 0o755)
	if err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	err = persist.Save(m.path(), m.codec, &snapshot{Meta: meta, State: state})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	return nil
}

// Load reads the checkpoint and rebuilds the ledger from it. The recorded
// repository path must match; a key collision or a moved checkpoint directory
// is surfaced as ErrRepoMismatch instead of silently mixing histories.
func (m *Manager) Load() (*provenance.Ledger, Meta, error) {
	var snap snapshot

	err := persist.Load(m.path(), m.codec, &snap)
	if errors.Is(err, os.ErrNotExist) {
		return nil, Meta{}, ErrNoCheckpoint
	}

	if err != nil {
		return nil, Meta{}, fmt.Errorf("load checkpoint: %w", err)
	}

	if snap.Meta.RepoPath != m.repoPath {
		return nil, Meta{}, fmt.Errorf("%w: checkpoint for %s", ErrRepoMismatch, snap.Meta.RepoPath)
	}

	ledger, err := provenance.RestoreLedger(snap.State)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("restore ledger: %w", err)
	}

	return ledger, snap.Meta, nil
}

// Clear removes the checkpoint if present.
func (m *Manager) Clear() error {
	err := os.Remove(m.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}

	return nil
}
