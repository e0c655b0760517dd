// Package digest computes the short content fingerprints used throughout the
// merkle tree.
//
// A Digest is the first 12 hex characters (48 bits) of a SHA-256 sum. The
// short form keeps hashes readable in reports and diffs; it is not collision
// resistant at scale and is not meant to be a cryptographic commitment.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Length is the number of hex characters in a Digest.
const Length = 12

// Algorithm names the underlying hash function in persisted trees.
const Algorithm = "sha256"

// ErrInvalidDigest is returned when a string is not a well-formed Digest.
var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a truncated, lowercase hex SHA-256 fingerprint.
type Digest string

// Empty is the digest of zero bytes. An empty tree's root hash equals it.
var Empty = Bytes(nil)

// Bytes hashes data and returns its Digest.
func Bytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:])[:Length])
}

// File reads the file at path and returns the Digest of its content.
func File(path string) (Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return Bytes(data), nil
}

// Fold combines child digests into a parent digest. The input is sorted
// before concatenation, so any permutation of the same set folds to the
// same value. The caller's slice is left untouched.
func Fold(children []Digest) Digest {
	sorted := make([]string, len(children))
	for i, child := range children {
		sorted[i] = string(child)
	}
	sort.Strings(sorted)
	return Bytes([]byte(strings.Join(sorted, "")))
}

// Parse validates s and returns it as a Digest.
func Parse(s string) (Digest, error) {
	d := Digest(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	return d, nil
}

// Valid reports whether d is exactly 12 lowercase hex characters.
func (d Digest) Valid() bool {
	if len(d) != Length {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// String returns the digest as a plain string.
func (d Digest) String() string {
	return string(d)
}
