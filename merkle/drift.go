package merkle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shihwesley/chronicler/digest"
)

// Drift records a file whose on-disk content no longer matches the tree.
type Drift struct {
	Path         string
	DocPath      string
	RecordedHash digest.Digest
	CurrentHash  digest.Digest
}

// DetectDrift re-hashes every file node under t.RootPath. It returns a new
// tree in which drifted nodes are marked stale, and the drifted entries in
// path order. Missing or unreadable files are skipped: drift checking only
// detects content changes, deletions are found by a rebuild and Compare.
func DetectDrift(t *Tree, logger *slog.Logger) (*Tree, []Drift) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	updated := t.Clone()
	var drifts []Drift
	for _, node := range t.Files() {
		absPath := filepath.Join(t.RootPath, filepath.FromSlash(node.Path))
		info, err := os.Stat(absPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		current, err := digest.File(absPath)
		if err != nil {
			logger.Debug("drift check skipped unreadable file", "path", node.Path, "error", err)
			continue
		}
		if current == node.SourceHash {
			continue
		}
		stale := node.clone()
		stale.Stale = true
		updated.Nodes[node.Path] = stale
		drifts = append(drifts, Drift{
			Path:         node.Path,
			DocPath:      node.DocPath,
			RecordedHash: node.SourceHash,
			CurrentHash:  current,
		})
	}
	return updated, drifts
}

// CheckDrift is DetectDrift returning the stale nodes of the new tree.
func CheckDrift(t *Tree) (*Tree, []*Node) {
	updated, drifts := DetectDrift(t, nil)
	stale := make([]*Node, len(drifts))
	for i, d := range drifts {
		stale[i] = updated.Nodes[d.Path]
	}
	return updated, stale
}

// UpdateNode returns a copy of t in which the file at path records
// sourceHash (and docHash, when non-empty) with its stale flag cleared.
// Ancestor directory hashes and the root hash are re-folded so the copy
// stays a valid tree.
func (t *Tree) UpdateNode(path string, sourceHash, docHash digest.Digest) (*Tree, error) {
	node, err := t.Node(path)
	if err != nil {
		return nil, err
	}
	if !node.IsFile() {
		return nil, &NotFileError{Path: node.Path}
	}
	if docHash == "" {
		docHash = node.DocHash
	}
	refreshed, err := NewFileNode(node.Path, sourceHash, docHash, node.DocPath)
	if err != nil {
		return nil, err
	}

	updated := t.Clone()
	updated.Nodes[node.Path] = refreshed
	for _, dir := range ancestors(node.Path) {
		parent := updated.Nodes[dir]
		hashes := make([]digest.Digest, len(parent.Children))
		for i, child := range parent.Children {
			hashes[i] = updated.Nodes[child].Hash
		}
		folded := parent.clone()
		folded.Hash = digest.Fold(hashes)
		updated.Nodes[dir] = folded
	}
	updated.RootHash = updated.Nodes[""].Hash
	return updated, nil
}

// NotFileError is returned by UpdateNode for a directory path.
type NotFileError struct {
	Path string
}

func (e *NotFileError) Error() string {
	return fmt.Sprintf("not a file node: %q", e.Path)
}
