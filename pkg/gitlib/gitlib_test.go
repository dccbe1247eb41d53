package gitlib_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palvaroni/git-history-parser/pkg/gitlib"
)

// testRepo wraps a repository fixture for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	dir := filepath.Dir(path)

	if dir != tr.path {
		err := os.MkdirAll(dir, 0o755)
		require.NoError(tr.t, err)
	}

	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()

	err := os.Remove(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)
}

func (tr *testRepo) renameFile(oldName, newName string) {
	tr.t.Helper()

	err := os.Rename(filepath.Join(tr.path, oldName), filepath.Join(tr.path, newName))
	require.NoError(tr.t, err)
}

// commit stages everything and creates a commit on HEAD.
func (tr *testRepo) commit(message string) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(tr.t, err)

	err = index.UpdateAll([]string{"*"}, nil)
	require.NoError(tr.t, err)

	err = index.Write()
	require.NoError(tr.t, err)

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  time.Now(),
	}

	var parents []*git2go.Commit

	head, err := tr.native.Head()
	if err == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

func (tr *testRepo) open() *gitlib.Repository {
	tr.t.Helper()

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(tr.t, err)

	tr.t.Cleanup(repo.Free)

	return repo
}

func TestOpenRepositoryMissingPath(t *testing.T) {
	t.Parallel()

	_, err := gitlib.OpenRepository(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLogOldestFirst(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "one\n")
	first := tr.commit("first")
	tr.createFile("b.txt", "two\n")
	second := tr.commit("second")
	tr.createFile("c.txt", "three\n")
	third := tr.commit("third")

	repo := tr.open()

	iter, err := repo.Log(&gitlib.LogOptions{FirstParent: true})
	require.NoError(t, err)

	defer iter.Close()

	var hashes []gitlib.Hash

	err = iter.ForEach(func(c *gitlib.Commit) error {
		hashes = append(hashes, c.Hash())

		return nil
	})
	require.NoError(t, err)

	require.Len(t, hashes, 3)
	assert.Equal(t, first, hashes[0])
	assert.Equal(t, second, hashes[1])
	assert.Equal(t, third, hashes[2])
}

func TestCommitIterNextReturnsEOFWhenExhausted(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "one\n")
	tr.commit("only")

	repo := tr.open()

	iter, err := repo.Log(nil)
	require.NoError(t, err)

	defer iter.Close()

	commit, err := iter.Next()
	require.NoError(t, err)
	commit.Free()

	// Exhaustion is io.EOF, and stays io.EOF on repeated calls.
	_, err = iter.Next()
	require.ErrorIs(t, err, io.EOF)

	_, err = iter.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDiffWithParentRootCommit(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "one\ntwo\nthree\n")
	hash := tr.commit("initial")

	repo := tr.open()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	changes, err := repo.DiffWithParent(commit, 50)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, gitlib.ChangeAdd, change.Kind)
	assert.Equal(t, "a.txt", change.NewPath)
	require.Len(t, change.Hunks, 1)

	// Root commit diffs against the empty tree: one pure insertion hunk.
	hunk := change.Hunks[0]
	assert.Equal(t, 0, hunk.OldCount)
	assert.Equal(t, 1, hunk.NewStart)
	assert.Equal(t, 3, hunk.NewCount)
}

func TestDiffWithParentZeroContextHunks(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\n")
	tr.commit("initial")

	// Change a single line in the middle.
	tr.createFile("a.txt", "l1\nl2\nl3\nCHANGED\nl5\nl6\nl7\nl8\n")
	hash := tr.commit("edit line 4")

	repo := tr.open()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	changes, err := repo.DiffWithParent(commit, 50)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, gitlib.ChangeModify, change.Kind)
	require.Len(t, change.Hunks, 1)

	// Zero context lines: the hunk covers exactly the changed line.
	hunk := change.Hunks[0]
	assert.Equal(t, 4, hunk.OldStart)
	assert.Equal(t, 1, hunk.OldCount)
	assert.Equal(t, 4, hunk.NewStart)
	assert.Equal(t, 1, hunk.NewCount)
}

func TestDiffWithParentDeletion(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "keep\n")
	tr.createFile("b.txt", "gone\n")
	tr.commit("initial")

	tr.deleteFile("b.txt")
	hash := tr.commit("remove b")

	repo := tr.open()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	changes, err := repo.DiffWithParent(commit, 50)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, gitlib.ChangeDelete, change.Kind)
	assert.Equal(t, "b.txt", change.OldPath)
	assert.Equal(t, "b.txt", change.Path())
	require.Len(t, change.Hunks, 1)
	assert.Equal(t, 0, change.Hunks[0].NewCount)
}

func TestDiffWithParentDetectsRename(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("old.txt", "alpha\nbeta\ngamma\ndelta\nepsilon\n")
	tr.commit("initial")

	tr.renameFile("old.txt", "new.txt")
	hash := tr.commit("rename")

	repo := tr.open()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	changes, err := repo.DiffWithParent(commit, 50)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, gitlib.ChangeRename, change.Kind)
	assert.Equal(t, "old.txt", change.OldPath)
	assert.Equal(t, "new.txt", change.NewPath)
	assert.Equal(t, "new.txt", change.Path())
	assert.Empty(t, change.Hunks, "identical content carries no hunks")
}

func TestCommitMetadata(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "one\n")
	hash := tr.commit("message here")

	repo := tr.open()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, hash, commit.Hash())
	assert.Equal(t, "test@example.com", commit.Author().Email)
	assert.Equal(t, "message here", commit.Message())
	assert.Equal(t, 0, commit.NumParents())
}

func TestHashRoundTrip(t *testing.T) {
	t.Parallel()

	const hex = "0123456789abcdef0123456789abcdef01234567"

	hash := gitlib.NewHash(hex)
	assert.Equal(t, hex, hash.String())
	assert.False(t, hash.IsZero())
	assert.True(t, gitlib.Hash{}.IsZero())
}
