package provenance

import (
	"errors"
	"fmt"
	"time"
)

// ErrCorruptState is returned when a restored ledger state is internally
// inconsistent.
var ErrCorruptState = errors.New("corrupt ledger state")

// RecordState is the serializable projection of a Record.
type RecordState struct {
	CommitHash string
	Author     string
	Date       time.Time
	Sequence   int
	Type       ModificationType
	FilePaths  []string
	StartLine  int
	EndLine    int

	ModifiedAt    time.Time
	ModifiedBySeq int
	BackFilled    bool
}

// SpanState is one ownership entry; Record indexes into LedgerState.Records.
type SpanState struct {
	Start  int
	End    int
	Record int
}

// TableState is the serializable projection of one file's ownership table.
type TableState struct {
	Length int
	Spans  []SpanState
}

// LedgerState is the full serializable state of a Ledger, used to continue a
// run across process boundaries.
type LedgerState struct {
	Records []RecordState
	Tables  map[string]TableState
	Dropped []string
}

// State snapshots the ledger into a serializable form.
func (l *Ledger) State() *LedgerState {
	state := &LedgerState{
		Records: make([]RecordState, 0, len(l.records)),
		Tables:  make(map[string]TableState, len(l.tables)),
	}

	index := make(map[*Record]int, len(l.records))

	for i, rec := range l.records {
		index[rec] = i
		state.Records = append(state.Records, RecordState{
			CommitHash:    rec.Commit.Hash,
			Author:        rec.Commit.Author,
			Date:          rec.Commit.Date,
			Sequence:      rec.Commit.Sequence,
			Type:          rec.Type,
			FilePaths:     rec.FilePaths,
			StartLine:     rec.StartLine,
			EndLine:       rec.EndLine,
			ModifiedAt:    rec.modifiedAt,
			ModifiedBySeq: rec.modifiedBySeq,
			BackFilled:    rec.backFilled,
		})
	}

	for path, t := range l.tables {
		ts := TableState{Length: t.length, Spans: make([]SpanState, 0, len(t.spans))}
		for _, s := range t.spans {
			ts.Spans = append(ts.Spans, SpanState{Start: s.start, End: s.end, Record: index[s.record]})
		}

		state.Tables[path] = ts
	}

	for path := range l.dropped {
		state.Dropped = append(state.Dropped, path)
	}

	return state
}

// RestoreLedger rebuilds a ledger from a snapshot. Commits are deduplicated by
// sequence so records from the same commit share one Commit value, matching
// the shape of a live run.
func RestoreLedger(state *LedgerState) (*Ledger, error) {
	l := NewLedger()
	commits := make(map[int]*Commit)

	for _, rs := range state.Records {
		commit, ok := commits[rs.Sequence]
		if !ok {
			commit = &Commit{Hash: rs.CommitHash, Author: rs.Author, Date: rs.Date, Sequence: rs.Sequence}
			commits[rs.Sequence] = commit
		}

		l.records = append(l.records, &Record{
			Commit:        commit,
			Type:          rs.Type,
			FilePaths:     rs.FilePaths,
			StartLine:     rs.StartLine,
			EndLine:       rs.EndLine,
			modifiedAt:    rs.ModifiedAt,
			modifiedBySeq: rs.ModifiedBySeq,
			backFilled:    rs.BackFilled,
		})
	}

	for path, ts := range state.Tables {
		t := newTable(ts.Length)

		for _, ss := range ts.Spans {
			if ss.Record < 0 || ss.Record >= len(l.records) {
				return nil, fmt.Errorf("%w: span of %s references record %d of %d",
					ErrCorruptState, path, ss.Record, len(l.records))
			}

			t.spans = append(t.spans, span{start: ss.Start, end: ss.End, record: l.records[ss.Record]})
		}

		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptState, path, err)
		}

		l.tables[path] = t
	}

	for _, path := range state.Dropped {
		l.dropped[path] = true
	}

	return l, nil
}

// NextSequence returns the sequence index the next processed commit should
// receive after a restore: one past the highest sequence seen.
func (l *Ledger) NextSequence() int {
	next := 0

	for _, rec := range l.records {
		if rec.Commit.Sequence >= next {
			next = rec.Commit.Sequence + 1
		}

		if rec.backFilled && rec.modifiedBySeq >= next {
			next = rec.modifiedBySeq + 1
		}
	}

	return next
}
