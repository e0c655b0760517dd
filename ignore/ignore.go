package ignore

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides whether a path under the project root is excluded from
// the merkle walk, the doc scan and the watcher.
//
// A path is excluded when any of its segments equals a name in the ignore
// set (DefaultNames plus caller names plus the doc directory). When gitignore
// support is on, root .gitignore and .chroniclerignore rules apply as well.
// Thread-safe: Reload() takes the write lock, matching takes the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	names            map[string]struct{}
	respectGitignore bool
	rules            []gitignore.GitIgnore
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir string
	// Names are extra segment names to skip, on top of DefaultNames.
	Names []string
	// RespectGitignore enables .gitignore / .chroniclerignore rules.
	RespectGitignore bool
}

// NewMatcher creates a matcher rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		names:            make(map[string]struct{}, len(DefaultNames)+len(options.Names)),
		respectGitignore: options.RespectGitignore,
	}
	for _, name := range DefaultNames {
		matcher.names[name] = struct{}{}
	}
	for _, name := range options.Names {
		name = strings.Trim(strings.TrimSpace(name), "/")
		if name != "" {
			matcher.names[name] = struct{}{}
		}
	}
	if matcher.respectGitignore {
		matcher.rules = loadRules(options.RootDir)
	}
	return matcher
}

// Names returns the sorted ignore set.
func (m *Matcher) Names() []string {
	names := make([]string, 0, len(m.names))
	for name := range m.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchRelative reports whether a root-relative, slash-separated path is
// excluded. isDir only matters for gitignore rules ending in "/".
func (m *Matcher) MatchRelative(relativePath string, isDir bool) bool {
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == "" || relativePath == "." {
		return false
	}
	for _, segment := range strings.Split(relativePath, "/") {
		if _, ok := m.names[segment]; ok {
			return true
		}
	}
	if !m.respectGitignore {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rules := range m.rules {
		match := rules.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// ShouldIgnore reports whether the file at absolutePath is excluded.
// Paths outside the root are never ignored here.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return false
	}
	isDir := false
	if m.respectGitignore {
		if info, err := os.Stat(absolutePath); err == nil {
			isDir = info.IsDir()
		}
	}
	return m.MatchRelative(relativePath, isDir)
}

// ShouldIgnoreDir reports whether a directory should be skipped entirely
// during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if _, ok := m.names[filepath.Base(absolutePath)]; ok {
		return true
	}
	relativePath, ok := m.relative(absolutePath)
	if !ok {
		return false
	}
	return m.MatchRelative(relativePath, true)
}

// IsRuleFile reports whether name is one of the ignore rule files, so
// callers can Reload when it changes.
func IsRuleFile(name string) bool {
	return slices.Contains(RuleFiles, name)
}

// Reload re-reads the gitignore-syntax rule files from disk.
func (m *Matcher) Reload() {
	if !m.respectGitignore {
		return
	}
	rules := loadRules(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = rules
}

func (m *Matcher) relative(absolutePath string) (string, bool) {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		return "", false
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == ".." || strings.HasPrefix(relativePath, "../") {
		return "", false
	}
	return relativePath, true
}

func loadRules(rootDir string) []gitignore.GitIgnore {
	var rules []gitignore.GitIgnore
	for _, name := range RuleFiles {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			rules = append(rules, gi)
		}
	}
	return rules
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses the io.Reader constructor so the file handle is closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
