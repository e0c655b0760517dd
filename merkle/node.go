// Package merkle builds, persists and compares content-addressed trees over
// a project directory. Every file node carries the digest of its source and,
// when one was found, of its paired documentation artifact; every directory
// node carries the fold of its children's digests.
package merkle

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shihwesley/chronicler/digest"
)

var (
	// ErrNotFound is returned when a path has no node in the tree.
	ErrNotFound = errors.New("node not found")
	// ErrNoBaseline is returned when no persisted tree exists yet. It is
	// distinct from a tree with nothing stale.
	ErrNoBaseline = errors.New("no baseline tree")
	// ErrMalformedTree wraps every failure to decode a durable tree.
	ErrMalformedTree = errors.New("malformed tree")
)

// Node is a file or directory in the tree. SourceHash is empty for
// directories and set for files; it is the only discriminator.
type Node struct {
	// Path is slash-separated and relative to the tree root; "" is the root.
	Path       string
	Hash       digest.Digest
	Children   []string
	SourceHash digest.Digest
	DocHash    digest.Digest
	DocPath    string
	Stale      bool
}

// NewFileNode creates a file node. Its Hash equals sourceHash. docHash and
// docPath are either both set or both empty.
func NewFileNode(path string, sourceHash, docHash digest.Digest, docPath string) (*Node, error) {
	if !sourceHash.Valid() {
		return nil, fmt.Errorf("file %q source hash: %w: %q", path, digest.ErrInvalidDigest, sourceHash)
	}
	if docHash != "" && !docHash.Valid() {
		return nil, fmt.Errorf("file %q doc hash: %w: %q", path, digest.ErrInvalidDigest, docHash)
	}
	if (docHash == "") != (docPath == "") {
		return nil, fmt.Errorf("file %q: doc hash and doc path must be set together", path)
	}
	return &Node{
		Path:       path,
		Hash:       sourceHash,
		SourceHash: sourceHash,
		DocHash:    docHash,
		DocPath:    docPath,
	}, nil
}

// NewDirNode creates a directory node. children is copied and sorted.
func NewDirNode(path string, hash digest.Digest, children []string) (*Node, error) {
	if !hash.Valid() {
		return nil, fmt.Errorf("directory %q hash: %w: %q", path, digest.ErrInvalidDigest, hash)
	}
	var sorted []string
	if len(children) > 0 {
		sorted = slices.Clone(children)
		sort.Strings(sorted)
	}
	return &Node{Path: path, Hash: hash, Children: sorted}, nil
}

// IsFile reports whether n is a file node.
func (n *Node) IsFile() bool {
	return n.SourceHash != ""
}

// HasDoc reports whether a documentation artifact is paired with n.
func (n *Node) HasDoc() bool {
	return n.DocPath != ""
}

// clone returns a shallow copy. Children is shared; it is never mutated.
func (n *Node) clone() *Node {
	c := *n
	return &c
}

// Tree is one snapshot of a project. Core operations never mutate a Tree
// after it is returned; drift checks and updates return a new Tree that
// shares unchanged nodes with the old one.
type Tree struct {
	RootHash digest.Digest
	Nodes    map[string]*Node
	// RootPath is the absolute directory the tree was built from.
	RootPath string
	LastScan time.Time
}

// Node returns the node at p, or ErrNotFound.
func (t *Tree) Node(p string) (*Node, error) {
	p = normalizePath(p)
	node, ok := t.Nodes[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, p)
	}
	return node, nil
}

// Files returns all file nodes sorted by path.
func (t *Tree) Files() []*Node {
	files := make([]*Node, 0, len(t.Nodes))
	for _, node := range t.Nodes {
		if node.IsFile() {
			files = append(files, node)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// Clone copies the node map. Nodes themselves are shared.
func (t *Tree) Clone() *Tree {
	nodes := make(map[string]*Node, len(t.Nodes))
	for p, node := range t.Nodes {
		nodes[p] = node
	}
	return &Tree{
		RootHash: t.RootHash,
		Nodes:    nodes,
		RootPath: t.RootPath,
		LastScan: t.LastScan,
	}
}

// Validate checks the structural invariants: a root node exists and its hash
// is RootHash, map keys match node paths, every ancestor directory of every
// file has a node, and children lists agree with the node set.
func (t *Tree) Validate() error {
	root, ok := t.Nodes[""]
	if !ok {
		return errors.New("missing root node")
	}
	if root.Hash != t.RootHash {
		return fmt.Errorf("root hash %q does not match root node hash %q", t.RootHash, root.Hash)
	}
	for key, node := range t.Nodes {
		if node == nil {
			return fmt.Errorf("node %q is null", key)
		}
		if node.Path != key {
			return fmt.Errorf("node key %q does not match path %q", key, node.Path)
		}
		if !node.IsFile() {
			continue
		}
		for _, dir := range ancestors(node.Path) {
			if _, ok := t.Nodes[dir]; !ok {
				return fmt.Errorf("file %q: missing ancestor directory %q", node.Path, dir)
			}
		}
	}
	return t.validateChildren()
}

// validateChildren checks that every listed child exists directly under its
// listing directory and that every non-root node is listed exactly once by
// its parent.
func (t *Tree) validateChildren() error {
	listed := make(map[string]struct{}, len(t.Nodes))
	for dir, node := range t.Nodes {
		for _, child := range node.Children {
			if _, ok := t.Nodes[child]; !ok {
				return fmt.Errorf("directory %q: child %q has no node", dir, child)
			}
			if child == "" || parentDir(child) != dir {
				return fmt.Errorf("directory %q: child %q is not directly inside it", dir, child)
			}
			if _, dup := listed[child]; dup {
				return fmt.Errorf("directory %q: child %q listed twice", dir, child)
			}
			listed[child] = struct{}{}
		}
	}
	for p := range t.Nodes {
		if p == "" {
			continue
		}
		if _, ok := listed[p]; !ok {
			return fmt.Errorf("node %q is missing from the children of %q", p, parentDir(p))
		}
	}
	return nil
}

// parentDir returns the slash-separated parent of p, "" for top-level paths.
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ancestors returns every proper prefix directory of p, nearest first,
// ending with the root "".
func ancestors(p string) []string {
	var dirs []string
	for p != "" {
		p = parentDir(p)
		dirs = append(dirs, p)
	}
	return dirs
}

// depth counts path segments; the root has depth 0.
func depth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}
