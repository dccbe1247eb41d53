package provenance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palvaroni/git-history-parser/pkg/provenance"
)

func buildLedger(t *testing.T) *provenance.Ledger {
	t.Helper()

	l := provenance.NewLedger()
	a := commitAt(0)
	b := commitAt(1)

	l.BeginFile("f.txt")
	mustApply(t, l, a, "f.txt", provenance.Hunk{OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 5})
	mustApply(t, l, b, "f.txt", provenance.Hunk{OldStart: 2, OldCount: 2, NewStart: 2, NewCount: 3})
	l.Drop("broken.txt")

	return l
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	original := buildLedger(t)

	restored, err := provenance.RestoreLedger(original.State())
	require.NoError(t, err)

	origRecords := original.Records()
	restRecords := restored.Records()
	require.Len(t, restRecords, len(origRecords))

	for i, orig := range origRecords {
		rest := restRecords[i]

		assert.Equal(t, orig.Commit.Hash, rest.Commit.Hash)
		assert.Equal(t, orig.Commit.Sequence, rest.Commit.Sequence)
		assert.Equal(t, orig.Type, rest.Type)
		assert.Equal(t, orig.StartLine, rest.StartLine)
		assert.Equal(t, orig.EndLine, rest.EndLine)

		origAt, origOk := orig.ModifiedAt()
		restAt, restOk := rest.ModifiedAt()
		assert.Equal(t, origOk, restOk)
		assert.Equal(t, origAt, restAt)
	}

	assert.True(t, restored.IsDropped("broken.txt"))
	require.NoError(t, restored.Validate())
}

func TestStateRoundTripPreservesOwnershipShape(t *testing.T) {
	t.Parallel()

	original := buildLedger(t)

	restored, err := provenance.RestoreLedger(original.State())
	require.NoError(t, err)

	origRanges := original.OwnedRanges("f.txt")
	restRanges := restored.OwnedRanges("f.txt")
	require.Len(t, restRanges, len(origRanges))

	for i, orig := range origRanges {
		assert.Equal(t, orig.StartLine, restRanges[i].StartLine)
		assert.Equal(t, orig.EndLine, restRanges[i].EndLine)
		assert.Equal(t, orig.Record.Commit.Sequence, restRanges[i].Record.Commit.Sequence)
	}
}

func TestRestoredBackFillStillFirstWins(t *testing.T) {
	t.Parallel()

	original := buildLedger(t)

	restored, err := provenance.RestoreLedger(original.State())
	require.NoError(t, err)

	// The addition was back-filled by sequence 1 before the snapshot; a
	// later commit touching the same lines must not overwrite it.
	c := commitAt(2)
	mustApply(t, restored, c, "f.txt", provenance.Hunk{OldStart: 1, OldCount: 1, NewStart: 0, NewCount: 0})

	addRec := restored.Records()[0]
	at, ok := addRec.ModifiedAt()
	require.True(t, ok)
	assert.Equal(t, commitAt(1).Date, at)
}

func TestNextSequence(t *testing.T) {
	t.Parallel()

	l := provenance.NewLedger()
	assert.Equal(t, 0, l.NextSequence())

	built := buildLedger(t)
	assert.Equal(t, 2, built.NextSequence())
}

func TestRestoreLedgerRejectsDanglingSpan(t *testing.T) {
	t.Parallel()

	state := &provenance.LedgerState{
		Tables: map[string]provenance.TableState{
			"f.txt": {Length: 3, Spans: []provenance.SpanState{{Start: 1, End: 3, Record: 5}}},
		},
	}

	_, err := provenance.RestoreLedger(state)
	require.ErrorIs(t, err, provenance.ErrCorruptState)
}

func TestRestoreLedgerRejectsOverlappingSpans(t *testing.T) {
	t.Parallel()

	original := buildLedger(t)
	state := original.State()

	state.Tables["f.txt"] = provenance.TableState{
		Length: 6,
		Spans: []provenance.SpanState{
			{Start: 1, End: 3, Record: 0},
			{Start: 2, End: 4, Record: 1},
		},
	}

	_, err := provenance.RestoreLedger(state)
	require.ErrorIs(t, err, provenance.ErrCorruptState)
}
