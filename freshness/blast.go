package freshness

import (
	"github.com/shihwesley/chronicler/blast"
	"github.com/shihwesley/chronicler/merkle"
	"github.com/shihwesley/chronicler/techdoc"
)

// BlastRadius walks the doc edge graph outward from the component that
// documents changedPath. It needs a persisted tree and returns
// merkle.ErrNoBaseline without one.
func BlastRadius(projectPath, changedPath string, depth int, opts Options) (*blast.Result, error) {
	opts = opts.withDefaults()
	root, err := merkle.ResolveRoot(projectPath)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.Load(opts.TreePath(root))
	if err != nil {
		return nil, err
	}
	tree.RootPath = root

	graph, err := opts.DocScanner(root).LoadEdgeGraph()
	if err != nil {
		return nil, err
	}
	walker := blast.Walker{Resolver: techdoc.Resolver{Logger: opts.Logger}}
	result, err := walker.Walk(tree, changedPath, graph, depth)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("blast radius computed",
		"changed", changedPath,
		"start", result.Start,
		"depth", depth,
		"impacted", len(result.Impacts),
	)
	return result, nil
}
