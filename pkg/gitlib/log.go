package gitlib

import (
	"errors"
	"fmt"
	"io"

	git2go "github.com/libgit2/git2go/v34"
)

// LogOptions configures the commit log iteration.
type LogOptions struct {
	// FirstParent follows only the first parent of merge commits, keeping
	// the walked chain linear (git log --first-parent).
	FirstParent bool
}

// CommitIter iterates over commits oldest first.
type CommitIter struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Log returns an iterator over the history reachable from HEAD, oldest
// commit first. Topological sorting guarantees a parent is never visited
// after its descendant even when author dates are shuffled by rebases.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological | git2go.SortReverse)

	if opts != nil && opts.FirstParent {
		walk.SimplifyFirstParent()
	}

	return &CommitIter{walk: walk, repo: r}, nil
}

// Next returns the next commit in the iteration, or io.EOF when exhausted.
// Any other walker or lookup failure is surfaced as-is; only iteration-over
// maps to io.EOF.
func (ci *CommitIter) Next() (*Commit, error) {
	oid := new(git2go.Oid)

	err := ci.walk.Next(oid)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("advance revwalk: %w", err)
	}

	commit, err := ci.repo.repo.LookupCommit(oid)
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", oid.String(), err)
	}

	return &Commit{commit: commit, repo: ci.repo}, nil
}

// ForEach calls the callback for each commit, freeing each one afterwards.
func (ci *CommitIter) ForEach(cb func(*Commit) error) error {
	for {
		commit, err := ci.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		cbErr := cb(commit)
		commit.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Close releases the walker resources.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}
