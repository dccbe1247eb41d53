package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(seq int) *Record {
	return &Record{Commit: &Commit{Hash: "h", Sequence: seq}}
}

func TestTableInsertIntoEmpty(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	owner := rec(0)
	tbl.insert(1, 3, owner)

	require.NoError(t, tbl.validate())
	assert.Equal(t, 3, tbl.length)
	assert.Same(t, owner, tbl.ownerAt(1))
	assert.Same(t, owner, tbl.ownerAt(3))
	assert.Nil(t, tbl.ownerAt(4))
}

func TestTableInsertShiftsFollowingSpans(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	first := rec(0)
	second := rec(1)
	tbl.insert(1, 3, first)
	tbl.insert(1, 3, second)

	require.NoError(t, tbl.validate())
	assert.Equal(t, 6, tbl.length)

	// New lines 1-3 belong to the second record, original lines moved to 4-6.
	assert.Same(t, second, tbl.ownerAt(2))
	assert.Same(t, first, tbl.ownerAt(4))
	assert.Same(t, first, tbl.ownerAt(6))
}

func TestTableInsertSplitsStraddlingSpan(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	base := rec(0)
	mid := rec(1)
	tbl.insert(1, 6, base)
	tbl.insert(3, 2, mid)

	require.NoError(t, tbl.validate())
	assert.Equal(t, 8, tbl.length)

	assert.Same(t, base, tbl.ownerAt(2))
	assert.Same(t, mid, tbl.ownerAt(3))
	assert.Same(t, mid, tbl.ownerAt(4))
	assert.Same(t, base, tbl.ownerAt(5))
	assert.Same(t, base, tbl.ownerAt(8))
}

func TestTableRemoveWholeSpan(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	first := rec(0)
	second := rec(1)
	tbl.insert(1, 3, first)
	tbl.insert(4, 3, second)

	touched := tbl.remove(1, 3)

	require.NoError(t, tbl.validate())
	require.Len(t, touched, 1)
	assert.Same(t, first, touched[0])
	assert.Equal(t, 3, tbl.length)

	// Second record's lines shifted up.
	assert.Same(t, second, tbl.ownerAt(1))
	assert.Same(t, second, tbl.ownerAt(3))
}

func TestTableRemovePartialOverlapKeepsRemainder(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	base := rec(0)
	tbl.insert(1, 6, base)

	touched := tbl.remove(3, 4)

	require.NoError(t, tbl.validate())
	require.Len(t, touched, 1)
	assert.Same(t, base, touched[0])
	assert.Equal(t, 4, tbl.length)
	assert.Same(t, base, tbl.ownerAt(1))
	assert.Same(t, base, tbl.ownerAt(4))
	assert.Nil(t, tbl.ownerAt(5))
}

func TestTableRemoveReturnsEachOwnerOnce(t *testing.T) {
	t.Parallel()

	tbl := newTable(0)
	base := rec(0)
	mid := rec(1)
	tbl.insert(1, 6, base)
	// Splits base into 1-2 and 5-8 around mid at 3-4.
	tbl.insert(3, 2, mid)

	touched := tbl.remove(1, 8)

	require.Len(t, touched, 2)
	assert.Same(t, base, touched[0])
	assert.Same(t, mid, touched[1])
	assert.Empty(t, tbl.spans)
	assert.Equal(t, 0, tbl.length)
}

func TestTableUnknownLengthSkipsAccounting(t *testing.T) {
	t.Parallel()

	tbl := newTable(lengthUnknown)
	tbl.insert(5, 2, rec(0))

	require.NoError(t, tbl.validate())
	assert.Equal(t, lengthUnknown, tbl.length)

	tbl.remove(5, 6)
	assert.Equal(t, lengthUnknown, tbl.length)
}

func TestTableValidateRejectsOverlap(t *testing.T) {
	t.Parallel()

	tbl := newTable(lengthUnknown)
	tbl.spans = []span{
		{start: 1, end: 3, record: rec(0)},
		{start: 3, end: 5, record: rec(1)},
	}

	require.Error(t, tbl.validate())
}
