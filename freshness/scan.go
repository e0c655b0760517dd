package freshness

import (
	"context"
	"errors"

	"github.com/shihwesley/chronicler/merkle"
)

// ScanResult is the outcome of Scan.
type ScanResult struct {
	Tree *merkle.Tree
	// Diff compares the previous persisted tree with the project as it is
	// on disk now. It is empty on a first scan.
	Diff      merkle.Diff
	FirstScan bool
}

// Scan rebuilds the tree for projectPath and persists it. Documented
// sources whose doc did not change keep their recorded hash, so drift
// survives a rescan; see merkle.Rebase.
func Scan(ctx context.Context, projectPath string, opts Options) (*ScanResult, error) {
	opts = opts.withDefaults()
	root, err := merkle.ResolveRoot(projectPath)
	if err != nil {
		return nil, err
	}
	treePath := opts.TreePath(root)

	previous, err := merkle.Load(treePath)
	firstScan := errors.Is(err, merkle.ErrNoBaseline)
	if err != nil && !firstScan {
		return nil, err
	}

	current, err := merkle.Build(ctx, opts.BuildOptions(root))
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Tree: current, FirstScan: firstScan}
	if !firstScan {
		result.Diff = merkle.Compare(previous, current)
		if result.Tree, err = merkle.Rebase(previous, current); err != nil {
			return nil, err
		}
	}
	if err := merkle.Save(treePath, result.Tree); err != nil {
		return nil, err
	}
	opts.Logger.Info("scan complete",
		"root", root,
		"files", len(result.Tree.Files()),
		"rootHash", result.Tree.RootHash,
		"firstScan", firstScan,
		"changed", len(result.Diff.Changed),
		"added", len(result.Diff.Added),
		"removed", len(result.Diff.Removed),
		"stale", len(result.Diff.Stale),
	)
	return result, nil
}
