package provenance

import (
	"errors"
	"fmt"
)

// ErrMalformedHunk is returned when a hunk fails structural validation.
var ErrMalformedHunk = errors.New("malformed hunk")

// Hunk is one contiguous diff block within one file's diff for one commit,
// with zero context lines so the coordinates are exact.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
}

// Classified is a hunk with its modification type and reported line range
// resolved. StartLine/EndLine follow the classification rules: new-version
// coordinates for additions and modifications, parent-version coordinates for
// deletions. The raw old/new ranges are kept for the ledger, which needs both
// sides of a modification.
type Classified struct {
	Type      ModificationType
	StartLine int
	EndLine   int
	OldStart  int
	OldCount  int
	NewStart  int
	NewCount  int
}

// Classify determines the modification type and reported range of a hunk.
// A hunk with no line delta (binary files, mode-only changes, pure renames)
// yields nil. Hunk granularity is the unit of classification: interleaved
// added/removed lines inside one hunk are not paired up line by line.
func Classify(h Hunk) (*Classified, error) {
	if h.OldCount < 0 || h.NewCount < 0 {
		return nil, fmt.Errorf("%w: negative count (-%d,+%d)", ErrMalformedHunk, h.OldCount, h.NewCount)
	}

	if h.OldCount == 0 && h.NewCount == 0 {
		return nil, nil //nolint:nilnil // a no-delta hunk produces no record by contract.
	}

	if h.OldCount > 0 && h.OldStart < 1 {
		return nil, fmt.Errorf("%w: old range starts at %d", ErrMalformedHunk, h.OldStart)
	}

	if h.NewCount > 0 && h.NewStart < 1 {
		return nil, fmt.Errorf("%w: new range starts at %d", ErrMalformedHunk, h.NewStart)
	}

	cl := &Classified{
		OldStart: h.OldStart,
		OldCount: h.OldCount,
		NewStart: h.NewStart,
		NewCount: h.NewCount,
	}

	switch {
	case h.OldCount == 0:
		cl.Type = Addition
		cl.StartLine = h.NewStart
		cl.EndLine = h.NewStart + h.NewCount - 1
	case h.NewCount == 0:
		cl.Type = Deletion
		cl.StartLine = h.OldStart
		cl.EndLine = h.OldStart + h.OldCount - 1
	default:
		cl.Type = Modification
		cl.StartLine = h.NewStart
		cl.EndLine = h.NewStart + h.NewCount - 1
	}

	return cl, nil
}
