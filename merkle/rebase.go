package merkle

// Rebase returns current with the recorded source hash of every documented
// file carried over from previous when its doc did not change. Such files
// are marked stale if their source moved on, so a rescan records new and
// removed files without hiding drift. Files whose doc changed, and files
// without a doc, take their current hashes.
func Rebase(previous, current *Tree) (*Tree, error) {
	files := current.Files()
	carried := 0
	for i, node := range files {
		prev, ok := previous.Nodes[node.Path]
		if !ok || !prev.IsFile() || !node.HasDoc() {
			continue
		}
		if prev.DocPath != node.DocPath || prev.DocHash != node.DocHash {
			continue
		}
		if prev.SourceHash == node.SourceHash {
			continue
		}
		kept, err := NewFileNode(node.Path, prev.SourceHash, node.DocHash, node.DocPath)
		if err != nil {
			return nil, err
		}
		kept.Stale = true
		files[i] = kept
		carried++
	}
	if carried == 0 {
		return current, nil
	}
	return assemble(current.RootPath, files, current.LastScan)
}
