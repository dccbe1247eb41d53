package provenance

import (
	"fmt"
)

// ReconciliationError reports that a hunk's coordinates are inconsistent with
// the ledger's model of the file, which can only happen when the underlying
// version-control tool and the ledger have diverged. The caller decides
// whether to abort (strict) or drop tracking for the file (degraded).
type ReconciliationError struct {
	Path      string
	StartLine int
	EndLine   int
}

// Error implements the error interface.
func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("ownership reconciliation failed for %s: range [%d, %d] outside tracked file",
		e.Path, e.StartLine, e.EndLine)
}

// Ledger is the stateful heart of the engine. It owns one ownership table per
// tracked file path and the append-only list of emitted records. Processing is
// strictly sequential over the commit stream; the ledger is owned by a single
// goroutine and needs no locking, since "later" is defined by processing
// order.
type Ledger struct {
	tables  map[string]*table
	dropped map[string]bool
	records []*Record

	// deltas tracks, per file, the net line shift already applied by earlier
	// hunks of the commit currently being processed. Hunk coordinates on the
	// old side are in parent-version frame; once a hunk of the same commit
	// has inserted or removed lines, later hunks of that file must be
	// resolved at OldStart plus this delta.
	deltaCommit *Commit
	deltas      map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		tables:  make(map[string]*table),
		dropped: make(map[string]bool),
		deltas:  make(map[string]int),
	}
}

// BeginFile registers path as a newly created file, so the ledger can track
// its exact length from the first hunk on. Files first seen mid-stream (no
// BeginFile call) are tracked with unknown length and skip bounds checks.
func (l *Ledger) BeginFile(path string) {
	if _, ok := l.tables[path]; ok {
		return
	}

	l.tables[path] = newTable(0)
}

// Apply resolves one classified hunk against the ownership table of its file:
// it emits a new record owned by commit and back-fills every prior record
// whose lines the hunk consumed. Hunks of one commit must arrive in ascending
// file order, as the diff tool emits them; the old-side coordinates of later
// hunks are translated by the line delta earlier hunks of the same commit
// already applied to the table. paths carries the file's current identity;
// two entries when a rename is in flight within the same commit.
func (l *Ledger) Apply(commit *Commit, paths []string, cl *Classified) (*Record, error) {
	if cl == nil {
		return nil, nil //nolint:nilnil // a no-delta hunk produces no record by contract.
	}

	if l.deltaCommit != commit {
		l.deltaCommit = commit
		clear(l.deltas)
	}

	path := paths[len(paths)-1]
	t := l.table(path)

	// Old-side coordinates are in parent-version frame; the table is in the
	// frame left behind by this commit's earlier hunks of the same file.
	oldStart := cl.OldStart + l.deltas[path]

	if err := checkBounds(path, t, cl, oldStart); err != nil {
		return nil, err
	}

	rec := &Record{
		Commit:    commit,
		Type:      cl.Type,
		FilePaths: paths,
		StartLine: cl.StartLine,
		EndLine:   cl.EndLine,
	}

	switch cl.Type {
	case Addition:
		t.insert(cl.NewStart, cl.NewCount, rec)
	case Deletion:
		l.backFillRange(commit, t, oldStart, oldStart+cl.OldCount-1)
	case Modification:
		// A modification is a deletion-then-insertion at the same position
		// for back-fill purposes, but emits a single record.
		l.backFillRange(commit, t, oldStart, oldStart+cl.OldCount-1)
		t.insert(cl.NewStart, cl.NewCount, rec)
	}

	l.deltas[path] += cl.NewCount - cl.OldCount
	l.records = append(l.records, rec)

	return rec, nil
}

// Rename re-keys the ownership table from oldPath to newPath without touching
// any span or owning record. Content hunks carried by the same commit are
// applied afterwards against the new key. A below-threshold rename never
// reaches here: the version-control tool already reports it as a deletion
// plus an addition.
func (l *Ledger) Rename(oldPath, newPath string) {
	if l.dropped[oldPath] {
		delete(l.dropped, oldPath)
		l.dropped[newPath] = true

		return
	}

	if delta, ok := l.deltas[oldPath]; ok {
		delete(l.deltas, oldPath)
		l.deltas[newPath] = delta
	}

	t, ok := l.tables[oldPath]
	if !ok {
		return
	}

	delete(l.tables, oldPath)
	l.tables[newPath] = t
}

// Drop abandons provenance tracking for path for the remainder of the run.
// Used by the caller after a ReconciliationError in degraded mode.
func (l *Ledger) Drop(path string) {
	delete(l.tables, path)
	delete(l.deltas, path)
	l.dropped[path] = true
}

// IsDropped reports whether tracking for path has been abandoned.
func (l *Ledger) IsDropped(path string) bool {
	return l.dropped[path]
}

// Records returns all records emitted so far, in commit-then-discovery order.
// The slice is append-only; records already returned stay valid as later
// commits only ever set their back-fill cell.
func (l *Ledger) Records() []*Record {
	return l.records
}

// OwnedRange is one entry of a file's ownership table in current-version
// coordinates.
type OwnedRange struct {
	StartLine int
	EndLine   int
	Record    *Record
}

// OwnedRanges returns the current ownership entries for path, in line order.
func (l *Ledger) OwnedRanges(path string) []OwnedRange {
	t, ok := l.tables[path]
	if !ok {
		return nil
	}

	ranges := make([]OwnedRange, 0, len(t.spans))
	for _, s := range t.spans {
		ranges = append(ranges, OwnedRange{StartLine: s.start, EndLine: s.end, Record: s.record})
	}

	return ranges
}

// OwnerAt returns the record owning the given current line of path, if any.
func (l *Ledger) OwnerAt(path string, line int) (*Record, bool) {
	t, ok := l.tables[path]
	if !ok {
		return nil, false
	}

	rec := t.ownerAt(line)
	if rec == nil {
		return nil, false
	}

	return rec, true
}

// Validate checks the structural invariant of every ownership table.
func (l *Ledger) Validate() error {
	for path, t := range l.tables {
		if err := t.validate(); err != nil {
			return fmt.Errorf("table %s: %w", path, err)
		}
	}

	return nil
}

func (l *Ledger) table(path string) *table {
	t, ok := l.tables[path]
	if !ok {
		t = newTable(lengthUnknown)
		l.tables[path] = t
	}

	return t
}

// checkBounds rejects hunks whose coordinates fall outside the tracked file.
// oldStart is the hunk's old-side start already translated into the table's
// current frame. Files with unknown length (first seen mid-stream) are exempt.
func checkBounds(path string, t *table, cl *Classified, oldStart int) error {
	if t.length == lengthUnknown {
		return nil
	}

	if cl.OldCount > 0 && (oldStart < 1 || oldStart+cl.OldCount-1 > t.length) {
		return &ReconciliationError{Path: path, StartLine: oldStart, EndLine: oldStart + cl.OldCount - 1}
	}

	if cl.Type == Addition && cl.NewStart > t.length+1 {
		return &ReconciliationError{Path: path, StartLine: cl.NewStart, EndLine: cl.NewStart + cl.NewCount - 1}
	}

	return nil
}

// backFillRange removes [start, end] from the table and back-fills every
// record owning lines in the range. All distinct ancestors receive the
// back-fill: each contributed content that was touched.
func (l *Ledger) backFillRange(commit *Commit, t *table, start, end int) {
	for _, rec := range t.remove(start, end) {
		rec.backFill(commit)
	}
}
