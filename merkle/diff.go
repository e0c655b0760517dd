package merkle

import (
	"sort"

	"github.com/shihwesley/chronicler/digest"
)

// Diff is the result of comparing an old tree with a new one. Path lists
// are sorted.
type Diff struct {
	Changed []string
	Added   []string
	Removed []string
	// Stale lists changed paths whose doc hash did not change: the source
	// moved on but nobody regenerated the doc.
	Stale       []string
	RootChanged bool
	OldRootHash digest.Digest
	NewRootHash digest.Digest
}

// Empty reports whether no file was changed, added or removed.
func (d Diff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Compare diffs the file nodes of before and after.
func Compare(before, after *Tree) Diff {
	d := Diff{
		RootChanged: before.RootHash != after.RootHash,
		OldRootHash: before.RootHash,
		NewRootHash: after.RootHash,
	}
	for p, oldNode := range before.Nodes {
		if !oldNode.IsFile() {
			continue
		}
		newNode, ok := after.Nodes[p]
		if !ok || !newNode.IsFile() {
			d.Removed = append(d.Removed, p)
			continue
		}
		if oldNode.SourceHash != newNode.SourceHash {
			d.Changed = append(d.Changed, p)
			if oldNode.DocHash == newNode.DocHash {
				d.Stale = append(d.Stale, p)
			}
		}
	}
	for p, newNode := range after.Nodes {
		if !newNode.IsFile() {
			continue
		}
		if oldNode, ok := before.Nodes[p]; !ok || !oldNode.IsFile() {
			d.Added = append(d.Added, p)
		}
	}
	sort.Strings(d.Changed)
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Stale)
	return d
}
