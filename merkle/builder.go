package merkle

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shihwesley/chronicler/digest"
	"github.com/shihwesley/chronicler/ignore"
)

// DefaultWorkers bounds the parallel file hashing pass.
const DefaultWorkers = 8

// Options configures Build.
type Options struct {
	// Root is the project directory. It is made absolute and
	// symlink-resolved before walking.
	Root string
	// DocDir is the documentation directory name. It is always ignored
	// by the walk, so docs and the persisted tree are never tracked as
	// sources.
	DocDir       string
	DocExtension string
	// IgnorePatterns are extra directory names matched against every
	// path segment, on top of ignore.DefaultNames.
	IgnorePatterns   []string
	RespectGitignore bool
	// Strategies overrides the pairing order. Nil means
	// DefaultStrategies(DocDir, DocExtension).
	Strategies []PairingStrategy
	Workers    int
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DocDir == "" {
		o.DocDir = DefaultDocDir
	}
	if o.DocExtension == "" {
		o.DocExtension = DefaultDocExtension
	}
	if o.Strategies == nil {
		o.Strategies = DefaultStrategies(o.DocDir, o.DocExtension)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Matcher returns the ignore matcher Build uses for these options.
func (o Options) Matcher(root string) *ignore.Matcher {
	o = o.withDefaults()
	return ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          root,
		Names:            append(slices.Clone(o.IgnorePatterns), o.DocDir),
		RespectGitignore: o.RespectGitignore,
	})
}

// ResolveRoot makes root absolute and resolves symlinks in it.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", root)
	}
	return resolved, nil
}

// Build walks opts.Root and returns a complete tree. Any error hashing a
// tracked file aborts the build.
func Build(ctx context.Context, opts Options) (*Tree, error) {
	opts = opts.withDefaults()
	start := time.Now()

	root, err := ResolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	files, err := collectFiles(root, opts.Matcher(root), opts.Logger)
	if err != nil {
		return nil, err
	}

	fileNodes, err := hashFiles(ctx, root, files, opts)
	if err != nil {
		return nil, err
	}

	tree, err := assemble(root, fileNodes, time.Now().UTC().Round(0))
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("tree built",
		"root", root,
		"files", len(fileNodes),
		"nodes", len(tree.Nodes),
		"rootHash", tree.RootHash,
		"duration", time.Since(start),
	)
	return tree, nil
}

// assemble folds file nodes into a complete tree, deepest directories
// first.
func assemble(root string, fileNodes []*Node, lastScan time.Time) (*Tree, error) {
	nodes := make(map[string]*Node, len(fileNodes)*2)
	index := newDirIndex()
	for _, node := range fileNodes {
		nodes[node.Path] = node
		index.register(node.Path)
	}
	for _, dir := range index.deepestFirst() {
		children := index.children(dir)
		hashes := make([]digest.Digest, len(children))
		for i, child := range children {
			hashes[i] = nodes[child].Hash
		}
		node, err := NewDirNode(dir, digest.Fold(hashes), children)
		if err != nil {
			return nil, err
		}
		nodes[dir] = node
	}
	return &Tree{
		RootHash: nodes[""].Hash,
		Nodes:    nodes,
		RootPath: root,
		LastScan: lastScan,
	}, nil
}

// collectFiles walks root and returns sorted, slash-separated relative paths
// of every tracked regular file. Symlinks to regular files are tracked;
// symlinked directories are not descended into.
func collectFiles(root string, matcher *ignore.Matcher, logger *slog.Logger) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("walking %s: %w", root, err)
			}
			logger.Debug("skipped unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		rel, ok := within(root, p)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if matcher.MatchRelative(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchRelative(rel, false) {
			return nil
		}
		if !d.Type().IsRegular() {
			info, statErr := os.Stat(p)
			if statErr != nil || !info.Mode().IsRegular() {
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// hashFiles fingerprints every file and its paired doc on a bounded worker
// group. The result keeps the order of files.
func hashFiles(ctx context.Context, root string, files []string, opts Options) ([]*Node, error) {
	nodes := make([]*Node, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			node, err := hashFile(root, rel, opts.Strategies)
			if err != nil {
				return err
			}
			nodes[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func hashFile(root, rel string, strategies []PairingStrategy) (*Node, error) {
	sourceHash, err := digest.File(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", rel, err)
	}
	var docHash digest.Digest
	docPath := findDoc(root, rel, strategies)
	if docPath != "" {
		docHash, err = digest.File(filepath.Join(root, filepath.FromSlash(docPath)))
		if err != nil {
			return nil, fmt.Errorf("hashing doc %s: %w", docPath, err)
		}
	}
	return NewFileNode(rel, sourceHash, docHash, docPath)
}

// dirIndex maps each directory to the set of its immediate children. The
// root "" is always present so an empty project still gets a root node.
type dirIndex map[string]map[string]struct{}

func newDirIndex() dirIndex {
	return dirIndex{"": {}}
}

// register links a file and every ancestor directory into the index. It
// stops early once it reaches a directory that is already linked.
func (idx dirIndex) register(filePath string) {
	child := filePath
	for child != "" {
		parent := parentDir(child)
		set, ok := idx[parent]
		if !ok {
			set = make(map[string]struct{})
			idx[parent] = set
		}
		if _, linked := set[child]; linked {
			return
		}
		set[child] = struct{}{}
		child = parent
	}
}

func (idx dirIndex) children(dir string) []string {
	children := make([]string, 0, len(idx[dir]))
	for child := range idx[dir] {
		children = append(children, child)
	}
	sort.Strings(children)
	return children
}

// deepestFirst orders directories by segment count descending, ties by path,
// so every child directory is folded before its parent.
func (idx dirIndex) deepestFirst() []string {
	dirs := make([]string, 0, len(idx))
	for dir := range idx {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}
