package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeKind is the file-level action reported by a tree diff.
type ChangeKind int

const (
	// ChangeAdd indicates a new file was added.
	ChangeAdd ChangeKind = iota
	// ChangeDelete indicates a file was removed.
	ChangeDelete
	// ChangeModify indicates a file's content changed in place.
	ChangeModify
	// ChangeRename indicates a file changed identity; Similarity carries
	// libgit2's rename score and Hunks any content change riding along.
	ChangeRename
)

// Hunk is one contiguous diff block. Counts of zero mark pure insertions or
// removals; coordinates are exact because diffs are computed with zero
// context lines.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
}

// FileChange is the diff of one file between a commit and its primary parent.
type FileChange struct {
	Kind       ChangeKind
	OldPath    string
	NewPath    string
	Similarity uint16
	Binary     bool
	Hunks      []Hunk
}

// Path returns the file's current identity: the new path when one exists.
func (fc *FileChange) Path() string {
	if fc.NewPath != "" {
		return fc.NewPath
	}

	return fc.OldPath
}

// DiffWithParent computes the hunk-level diff between a commit and its
// primary parent (the empty tree for a root commit). Renames are detected by
// libgit2 with the given similarity threshold (0-100); below it, git itself
// reports a deletion plus an addition and no rename ever surfaces here.
func (r *Repository) DiffWithParent(commit *Commit, renameThreshold uint16) ([]FileChange, error) {
	newTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	var oldTree *Tree

	if commit.NumParents() > 0 {
		parent, parentErr := commit.Parent(0)
		if parentErr != nil {
			return nil, parentErr
		}
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
		defer oldTree.Free()
	}

	diff, err := r.diffTrees(oldTree, newTree, renameThreshold)
	if err != nil {
		return nil, err
	}
	defer func() { _ = diff.Free() }()

	return collectChanges(diff)
}

// diffTrees runs the tree-to-tree diff with zero context lines and rename
// detection enabled.
func (r *Repository) diffTrees(oldTree, newTree *Tree, renameThreshold uint16) (*git2go.Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	opts.ContextLines = 0

	var oldT, newT *git2go.Tree

	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	findOpts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		_ = diff.Free()

		return nil, fmt.Errorf("get diff find options: %w", err)
	}

	findOpts.Flags = git2go.DiffFindRenames
	findOpts.RenameThreshold = renameThreshold

	err = diff.FindSimilar(&findOpts)
	if err != nil {
		_ = diff.Free()

		return nil, fmt.Errorf("find renames: %w", err)
	}

	return diff, nil
}

// collectChanges walks the diff deltas and their hunks into FileChange values.
func collectChanges(diff *git2go.Diff) ([]FileChange, error) {
	var changes []FileChange

	noopLine := func(git2go.DiffLine) error { return nil }
	skipHunks := func(git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) { return noopLine, nil }

	err := diff.ForEach(func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		fc, ok := changeFromDelta(delta)
		if !ok {
			return skipHunks, nil
		}

		changes = append(changes, fc)
		current := &changes[len(changes)-1]

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			current.Hunks = append(current.Hunks, Hunk{
				OldStart: hunk.OldStart,
				OldCount: hunk.OldLines,
				NewStart: hunk.NewStart,
				NewCount: hunk.NewLines,
			})

			return noopLine, nil
		}, nil
	}, git2go.DiffDetailHunks)
	if err != nil {
		return nil, fmt.Errorf("diff foreach: %w", err)
	}

	return changes, nil
}

// changeFromDelta maps a libgit2 delta to a FileChange, dropping delta types
// that carry no textual change.
func changeFromDelta(delta git2go.DiffDelta) (FileChange, bool) {
	fc := FileChange{
		Binary:     delta.Flags&git2go.DiffFlagBinary != 0,
		Similarity: delta.Similarity,
	}

	switch delta.Status {
	case git2go.DeltaAdded:
		fc.Kind = ChangeAdd
		fc.NewPath = delta.NewFile.Path
	case git2go.DeltaDeleted:
		fc.Kind = ChangeDelete
		fc.OldPath = delta.OldFile.Path
	case git2go.DeltaModified:
		fc.Kind = ChangeModify
		fc.OldPath = delta.OldFile.Path
		fc.NewPath = delta.NewFile.Path
	case git2go.DeltaRenamed, git2go.DeltaCopied:
		fc.Kind = ChangeRename
		fc.OldPath = delta.OldFile.Path
		fc.NewPath = delta.NewFile.Path
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaTypeChange, git2go.DeltaUnreadable, git2go.DeltaConflicted:
		// No textual change to track.
		return FileChange{}, false
	}

	return fc, true
}
