package techdoc

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shihwesley/chronicler/blast"
	"github.com/shihwesley/chronicler/ignore"
	"github.com/shihwesley/chronicler/merkle"
)

// Doc is a parsed documentation artifact.
type Doc struct {
	// Path is root-relative and slash-separated.
	Path        string
	ComponentID string
	Frontmatter Frontmatter
	Body        string
}

// Scanner finds documentation artifacts in a project. A doc is any file
// ending in Extension inside a directory named DocDir, at any depth.
type Scanner struct {
	Root      string
	DocDir    string
	Extension string
	// Matcher skips ignored directories. It must not list DocDir itself.
	// Nil means ignore.DefaultNames only.
	Matcher *ignore.Matcher
	Logger  *slog.Logger
}

func (s Scanner) withDefaults() Scanner {
	if s.DocDir == "" {
		s.DocDir = merkle.DefaultDocDir
	}
	if s.Extension == "" {
		s.Extension = merkle.DefaultDocExtension
	}
	if s.Matcher == nil {
		s.Matcher = ignore.NewMatcher(ignore.MatcherOptions{RootDir: s.Root})
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Pattern is the doublestar pattern matched against root-relative paths.
func (s Scanner) Pattern() string {
	s = s.withDefaults()
	return "**/" + s.DocDir + "/**/*" + s.Extension
}

// Collect returns the root-relative paths of all doc artifacts in walk
// order (lexical).
func (s Scanner) Collect() ([]string, error) {
	s = s.withDefaults()
	pattern := s.Pattern()
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid doc pattern: %s", pattern)
	}

	var docs []string
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.Root {
				return fmt.Errorf("walking %s: %w", s.Root, err)
			}
			return nil
		}
		if p == s.Root {
			return nil
		}
		rel, relErr := filepath.Rel(s.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if s.Matcher.MatchRelative(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		matched, matchErr := doublestar.Match(pattern, rel)
		if matchErr != nil || !matched {
			return nil
		}
		if s.Matcher.MatchRelative(rel, false) {
			return nil
		}
		docs = append(docs, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Read loads and parses the doc at rel. Malformed frontmatter is not an
// error: the doc is returned with an empty Frontmatter and its whole
// content as body.
func (s Scanner) Read(rel string) (Doc, error) {
	s = s.withDefaults()
	content, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		return Doc{}, fmt.Errorf("reading doc %s: %w", rel, err)
	}
	fm, body, err := Parse(content)
	if err != nil {
		s.Logger.Debug("ignoring malformed frontmatter", "path", rel, "error", err)
		body = content
	}
	doc := Doc{
		Path:        rel,
		ComponentID: fm.ComponentID,
		Frontmatter: fm,
		Body:        string(body),
	}
	if doc.ComponentID == "" {
		doc.ComponentID = strings.TrimSuffix(path.Base(rel), s.Extension)
	}
	return doc, nil
}

// Docs collects and reads every doc artifact. Unreadable docs are skipped.
func (s Scanner) Docs() ([]Doc, error) {
	s = s.withDefaults()
	paths, err := s.Collect()
	if err != nil {
		return nil, err
	}
	docs := make([]Doc, 0, len(paths))
	for _, rel := range paths {
		doc, err := s.Read(rel)
		if err != nil {
			s.Logger.Debug("skipped doc", "path", rel, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadEdgeGraph builds the component edge graph from doc frontmatter. Each
// doc contributes its component id, even with no edges. Docs sharing a
// component id have their edges merged.
func (s Scanner) LoadEdgeGraph() (blast.EdgeGraph, error) {
	docs, err := s.Docs()
	if err != nil {
		return nil, err
	}
	graph := make(blast.EdgeGraph, len(docs))
	for _, doc := range docs {
		graph[doc.ComponentID] = append(graph[doc.ComponentID], doc.Frontmatter.Edges...)
	}
	return graph, nil
}

// Resolver reads the component_id declared by a node's paired doc.
type Resolver struct {
	Logger *slog.Logger
}

// ComponentFor returns the paired doc's component_id, or "" when the node
// has no doc or the doc declares none.
func (r Resolver) ComponentFor(root string, node *merkle.Node) string {
	if !node.HasDoc() {
		return ""
	}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(node.DocPath)))
	if err != nil {
		r.debug("cannot read paired doc", "path", node.DocPath, "error", err)
		return ""
	}
	fm, _, err := Parse(content)
	if err != nil {
		r.debug("ignoring malformed frontmatter", "path", node.DocPath, "error", err)
		return ""
	}
	return fm.ComponentID
}

func (r Resolver) debug(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Debug(msg, args...)
	}
}
