// Package freshness reports how well a project's documentation tracks its
// sources: which docs have drifted, which sources have no doc, and which
// docs no longer describe anything.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/shihwesley/chronicler/digest"
	"github.com/shihwesley/chronicler/ignore"
	"github.com/shihwesley/chronicler/merkle"
	"github.com/shihwesley/chronicler/techdoc"
)

// Options configures a staleness check. Zero values fall back to the merkle
// defaults.
type Options struct {
	DocDir           string
	DocExtension     string
	TreeFile         string
	IgnorePatterns   []string
	RespectGitignore bool
	Workers          int
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DocDir == "" {
		o.DocDir = merkle.DefaultDocDir
	}
	if o.DocExtension == "" {
		o.DocExtension = merkle.DefaultDocExtension
	}
	if o.TreeFile == "" {
		o.TreeFile = merkle.DefaultTreeFile
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// BuildOptions returns the merkle build options for root.
func (o Options) BuildOptions(root string) merkle.Options {
	o = o.withDefaults()
	return merkle.Options{
		Root:             root,
		DocDir:           o.DocDir,
		DocExtension:     o.DocExtension,
		IgnorePatterns:   o.IgnorePatterns,
		RespectGitignore: o.RespectGitignore,
		Workers:          o.Workers,
		Logger:           o.Logger,
	}
}

// TreePath is where the tree for root is persisted.
func (o Options) TreePath(root string) string {
	o = o.withDefaults()
	return merkle.TreePath(root, o.DocDir, o.TreeFile)
}

// DocScanner returns a scanner over every doc directory in root. Its
// matcher carries the caller's ignore names but never the doc directory.
func (o Options) DocScanner(root string) techdoc.Scanner {
	o = o.withDefaults()
	return techdoc.Scanner{
		Root:      root,
		DocDir:    o.DocDir,
		Extension: o.DocExtension,
		Matcher: ignore.NewMatcher(ignore.MatcherOptions{
			RootDir:          root,
			Names:            o.IgnorePatterns,
			RespectGitignore: o.RespectGitignore,
		}),
		Logger: o.Logger,
	}
}

// StaleEntry is a source file whose content no longer matches the hash
// recorded when its doc was last in sync.
type StaleEntry struct {
	SourcePath   string        `json:"source_path"`
	DocPath      string        `json:"doc_path,omitempty"`
	CurrentHash  digest.Digest `json:"current_hash"`
	RecordedHash digest.Digest `json:"recorded_hash"`
}

// Report is the freshness status of a project.
type Report struct {
	Stale      []StaleEntry `json:"stale"`
	Uncovered  []string     `json:"uncovered"`
	Orphaned   []string     `json:"orphaned"`
	TotalFiles int          `json:"total_files"`
	TotalDocs  int          `json:"total_docs"`
	// FirstScan is set when no persisted tree existed and one was built.
	FirstScan bool `json:"first_scan"`
	// Tree is the checked tree with drifted nodes marked stale.
	Tree *merkle.Tree `json:"-"`
}

// Fresh is the number of tracked files that are neither stale nor
// uncovered.
func (r *Report) Fresh() int {
	fresh := r.TotalFiles - len(r.Stale) - len(r.Uncovered)
	if fresh < 0 {
		return 0
	}
	return fresh
}

// CheckStaleness loads the persisted tree for projectPath, or builds one
// when none exists, and reports drift, coverage and orphaned docs.
func CheckStaleness(projectPath string, opts Options) (*Report, error) {
	return Check(context.Background(), projectPath, opts)
}

// Check is CheckStaleness with a context bounding the build.
func Check(ctx context.Context, projectPath string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	root, err := merkle.ResolveRoot(projectPath)
	if err != nil {
		return nil, err
	}

	tree, firstScan, err := LoadOrBuild(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	checked, drifts := merkle.DetectDrift(tree, opts.Logger)
	report := &Report{
		Stale:     make([]StaleEntry, 0, len(drifts)),
		Uncovered: []string{},
		Orphaned:  []string{},
		FirstScan: firstScan,
		Tree:      checked,
	}
	for _, d := range drifts {
		report.Stale = append(report.Stale, StaleEntry{
			SourcePath:   d.Path,
			DocPath:      d.DocPath,
			CurrentHash:  d.CurrentHash,
			RecordedHash: d.RecordedHash,
		})
	}

	referenced := make(map[string]struct{})
	for _, node := range checked.Files() {
		if !existsOnDisk(root, node.Path) {
			continue
		}
		report.TotalFiles++
		if node.HasDoc() {
			referenced[node.DocPath] = struct{}{}
		} else {
			report.Uncovered = append(report.Uncovered, node.Path)
		}
	}

	docs, err := opts.DocScanner(root).Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting docs: %w", err)
	}
	for _, doc := range docs {
		if _, ok := referenced[doc]; ok {
			report.TotalDocs++
			continue
		}
		report.Orphaned = append(report.Orphaned, doc)
	}
	sort.Strings(report.Orphaned)

	opts.Logger.Debug("staleness checked",
		"root", root,
		"files", report.TotalFiles,
		"docs", report.TotalDocs,
		"stale", len(report.Stale),
		"uncovered", len(report.Uncovered),
		"orphaned", len(report.Orphaned),
		"firstScan", firstScan,
	)
	return report, nil
}

// LoadOrBuild returns the persisted tree for root, re-pointed at root, or
// a freshly built one. The boolean reports whether the tree was built.
// A corrupt persisted tree is an error, never silently rebuilt.
func LoadOrBuild(ctx context.Context, root string, opts Options) (*merkle.Tree, bool, error) {
	opts = opts.withDefaults()
	tree, err := merkle.Load(opts.TreePath(root))
	switch {
	case err == nil:
		tree.RootPath = root
		return tree, false, nil
	case errors.Is(err, merkle.ErrNoBaseline):
		built, buildErr := merkle.Build(ctx, opts.BuildOptions(root))
		if buildErr != nil {
			return nil, false, buildErr
		}
		return built, true, nil
	default:
		return nil, false, err
	}
}

func existsOnDisk(root, rel string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil && info.Mode().IsRegular()
}

// CheckOrInit is Check that also persists the tree on a first scan, so the
// next check has a baseline to compare against.
func CheckOrInit(ctx context.Context, projectPath string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report, err := Check(ctx, projectPath, opts)
	if err != nil {
		return nil, err
	}
	if report.FirstScan {
		if err := merkle.Save(opts.TreePath(report.Tree.RootPath), report.Tree); err != nil {
			return nil, err
		}
	}
	return report, nil
}
