package provenance

import (
	"errors"
	"fmt"
)

// lengthUnknown marks a file whose creation predates the processed window, so
// its total line count cannot be derived from the hunks seen so far.
const lengthUnknown = -1

// span maps a contiguous range of current line numbers (1-based, inclusive)
// to the record that introduced those lines.
type span struct {
	start  int
	end    int
	record *Record
}

// table is the per-file ownership structure: an ordered list of disjoint
// spans in current-version coordinates, mutated in place as each commit's
// hunks are applied. Lines not covered by any span have unknown provenance
// (they predate the processed window).
type table struct {
	spans  []span
	length int
}

func newTable(length int) *table {
	return &table{length: length}
}

// insert shifts every line at or after pos down by count and installs a new
// span [pos, pos+count-1] owned by rec. A span straddling the insertion point
// is split; both halves keep their original owner.
func (t *table) insert(pos, count int, rec *Record) {
	out := make([]span, 0, len(t.spans)+2)
	inserted := false

	for _, s := range t.spans {
		switch {
		case s.end < pos:
			out = append(out, s)
		case s.start >= pos:
			if !inserted {
				out = append(out, span{pos, pos + count - 1, rec})
				inserted = true
			}

			out = append(out, span{s.start + count, s.end + count, s.record})
		default:
			// s.start < pos <= s.end: split around the insertion point.
			out = append(out, span{s.start, pos - 1, s.record})
			out = append(out, span{pos, pos + count - 1, rec})
			out = append(out, span{pos + count, s.end + count, s.record})
			inserted = true
		}
	}

	if !inserted {
		out = append(out, span{pos, pos + count - 1, rec})
	}

	t.spans = out

	if t.length != lengthUnknown {
		t.length += count
	}
}

// remove deletes the line range [start, end] (pre-shift coordinates) and
// shifts every following line up by the removed count. It returns the owning
// records of all spans overlapping the range, each once, in table order; a
// partially covered span is trimmed and its uncovered remainder keeps its
// owner.
func (t *table) remove(start, end int) []*Record {
	delta := end - start + 1
	out := make([]span, 0, len(t.spans))

	var touched []*Record

	seen := make(map[*Record]bool)

	for _, s := range t.spans {
		switch {
		case s.end < start:
			out = append(out, s)
		case s.start > end:
			out = append(out, span{s.start - delta, s.end - delta, s.record})
		default:
			if !seen[s.record] {
				seen[s.record] = true
				touched = append(touched, s.record)
			}

			if s.start < start {
				out = append(out, span{s.start, start - 1, s.record})
			}

			if s.end > end {
				out = append(out, span{start, s.end - delta, s.record})
			}
		}
	}

	t.spans = out

	if t.length != lengthUnknown {
		t.length -= delta
	}

	return touched
}

// ownerAt returns the record owning the given current line, if any.
func (t *table) ownerAt(line int) *Record {
	for _, s := range t.spans {
		if s.start > line {
			return nil
		}

		if line <= s.end {
			return s.record
		}
	}

	return nil
}

// validate checks the structural invariant: spans are sorted, non-empty,
// disjoint, and within the tracked length when it is known.
func (t *table) validate() error {
	prevEnd := 0

	for _, s := range t.spans {
		if s.start < 1 || s.end < s.start {
			return fmt.Errorf("invalid span [%d, %d]", s.start, s.end) //nolint:err113 // internal consistency check.
		}

		if s.start <= prevEnd {
			return fmt.Errorf("overlapping spans at line %d", s.start) //nolint:err113 // internal consistency check.
		}

		if s.record == nil {
			return errors.New("span without owning record")
		}

		prevEnd = s.end
	}

	if t.length != lengthUnknown && prevEnd > t.length {
		return fmt.Errorf("span beyond file length %d", t.length) //nolint:err113 // internal consistency check.
	}

	return nil
}
