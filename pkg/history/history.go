// Package history drives the provenance engine over a repository's commit
// log: it walks commits oldest first, diffs each against its primary parent,
// classifies the hunks, and feeds them to the ledger.
package history

import (
	"errors"
	"time"
)

// ErrSourceUnavailable is returned when the repository cannot be opened or
// walked.
var ErrSourceUnavailable = errors.New("history source unavailable")

// DefaultRenameThreshold is git's default rename similarity score.
const DefaultRenameThreshold = 50

// Options configures one engine run.
type Options struct {
	// RepoPath is the path of the repository to analyze.
	RepoPath string

	// Skip drops the N oldest commits from processing. Files those commits
	// created surface later with unknown provenance for their untouched
	// lines, never as errors.
	Skip int

	// MaxCommits caps the number of processed commits; zero means no cap.
	MaxCommits int

	// RenameThreshold is the similarity score (1-100) above which a
	// delete-plus-add pair is reported as a rename.
	RenameThreshold uint16

	// Strict aborts the run on a reconciliation failure instead of dropping
	// the affected file from tracking.
	Strict bool

	// FirstParent walks only the first parent of merges, keeping the
	// processed chain linear.
	FirstParent bool

	// StartSequence is the sequence index of the first processed commit.
	// Non-zero when continuing a checkpointed run.
	StartSequence int

	// Progress, when set, is called after each processed commit.
	Progress func(processed int, hash string)
}

// Summary reports what one engine run did.
type Summary struct {
	CommitsProcessed int
	RecordsEmitted   int
	FilesDropped     int
	HunksSkipped     int
	LastCommit       string
	Elapsed          time.Duration
}
