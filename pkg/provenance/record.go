// Package provenance implements line-level provenance tracking over a
// chronological stream of per-commit diff hunks. It classifies each hunk,
// maintains a per-file table mapping current line ranges to the records that
// introduced them, and back-fills earlier records when a later commit touches
// their lines.
package provenance

import (
	"strings"
	"time"
)

// ModificationType classifies the effect of a hunk.
type ModificationType int

const (
	// Addition is a hunk that only inserts lines.
	Addition ModificationType = iota
	// Deletion is a hunk that only removes lines.
	Deletion
	// Modification is a hunk that both removes and inserts lines.
	Modification
)

// String returns the canonical output name of the modification type.
func (t ModificationType) String() string {
	switch t {
	case Addition:
		return "ADDITION"
	case Deletion:
		return "DELETION"
	case Modification:
		return "MODIFICATION"
	}

	return "UNKNOWN"
}

// Commit identifies one commit in the processed stream. Sequence is the
// chronological rank in processing order; it defines "earlier"/"later"
// independently of wall-clock dates, which can lie in rebased or imported
// history.
type Commit struct {
	Hash     string
	Author   string
	Date     time.Time
	Sequence int
}

// Record is the unit of output: one classified line range owned by one commit.
// All fields are fixed at creation except the back-fill cell, which is set at
// most once, by the first commit with a strictly greater Sequence that touches
// the record's lines.
type Record struct {
	Commit    *Commit
	Type      ModificationType
	FilePaths []string
	StartLine int
	EndLine   int

	modifiedAt    time.Time
	modifiedBySeq int
	backFilled    bool
}

// LineCount returns the number of lines covered by the record.
func (r *Record) LineCount() int {
	return r.EndLine - r.StartLine + 1
}

// ModifiedAt returns the back-fill timestamp and whether it has been set.
func (r *Record) ModifiedAt() (time.Time, bool) {
	return r.modifiedAt, r.backFilled
}

// FilePath returns the record's path(s), semicolon-joined when the record was
// produced while a rename was in flight.
func (r *Record) FilePath() string {
	return strings.Join(r.FilePaths, ";")
}

// backFill marks the record as touched by a later commit. First writer wins;
// a commit that is not strictly later in sequence order is ignored.
func (r *Record) backFill(c *Commit) {
	if r.backFilled {
		return
	}

	if c.Sequence <= r.Commit.Sequence {
		return
	}

	r.modifiedAt = c.Date
	r.modifiedBySeq = c.Sequence
	r.backFilled = true
}
