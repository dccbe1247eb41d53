// Package gitlib wraps the libgit2 operations the history engine needs:
// opening a repository, walking commits oldest first, and extracting
// hunk-level tree diffs with rename detection.
package gitlib

import (
	"encoding/hex"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// HashSize is the size of a SHA-1 object id in bytes.
const HashSize = 20

// Hash is a git object id.
type Hash [HashSize]byte

// NewHash parses a hex object id. Malformed input yields the zero hash.
func NewHash(s string) Hash {
	var h Hash

	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}
	}

	copy(h[:], raw)

	return h
}

// HashFromOid converts a libgit2 Oid to a Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash

	copy(h[:], oid[:])

	return h
}

// ToOid converts the hash back to a libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Signature is a git author or committer identity.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}
