package merkle

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// DefaultDocDir is the directory name that holds documentation artifacts.
	DefaultDocDir = ".chronicler"
	// DefaultDocExtension is the suffix of a documentation artifact.
	DefaultDocExtension = ".tech.md"
)

// PairingStrategy proposes where the documentation artifact of a source
// file should live. Candidate returns a root-relative, slash-separated path
// or "" when the strategy has nothing to offer.
type PairingStrategy interface {
	Name() string
	Candidate(sourcePath string) string
}

// SiblingStrategy looks for <dir>/<DocDir>/<stem><Extension> next to the
// source file.
type SiblingStrategy struct {
	DocDir    string
	Extension string
}

func (s SiblingStrategy) Name() string { return "sibling" }

func (s SiblingStrategy) Candidate(sourcePath string) string {
	base := path.Base(sourcePath)
	stem := strings.TrimSuffix(base, extension(base))
	return path.Join(parentDir(sourcePath), s.DocDir, stem+s.Extension)
}

// RootStrategy looks for <DocDir>/<component id><Extension> at the project
// root, where the component id is the source path without its extension
// and with slashes replaced by dashes.
type RootStrategy struct {
	DocDir    string
	Extension string
}

func (s RootStrategy) Name() string { return "root" }

func (s RootStrategy) Candidate(sourcePath string) string {
	return path.Join(s.DocDir, ComponentID(sourcePath)+s.Extension)
}

// ComponentID derives the root-convention component id of a source path:
// "src/auth/login.py" becomes "src-auth-login".
func ComponentID(sourcePath string) string {
	sourcePath = strings.ReplaceAll(sourcePath, "\\", "/")
	trimmed := strings.TrimSuffix(sourcePath, extension(path.Base(sourcePath)))
	return strings.ReplaceAll(trimmed, "/", "-")
}

// extension is path.Ext except that a leading dot does not start one:
// ".env" has no extension and ".eslintrc.json" has ".json".
func extension(base string) string {
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return path.Ext(base)
}

// DefaultStrategies returns the sibling strategy followed by the root
// strategy.
func DefaultStrategies(docDir, extension string) []PairingStrategy {
	return []PairingStrategy{
		SiblingStrategy{DocDir: docDir, Extension: extension},
		RootStrategy{DocDir: docDir, Extension: extension},
	}
}

// findDoc returns the first candidate that passes the traversal guard and
// exists as a regular file, as a root-relative path, or "".
func findDoc(root, sourcePath string, strategies []PairingStrategy) string {
	for _, strategy := range strategies {
		candidate := strategy.Candidate(sourcePath)
		if candidate == "" {
			continue
		}
		if rel, ok := resolveInside(root, candidate); ok {
			return rel
		}
	}
	return ""
}

// resolveInside applies the traversal guard. The candidate must stay inside
// root lexically, must be a regular file, and must still be inside root once
// symlinks are resolved. root must already be absolute and symlink-free.
func resolveInside(root, candidate string) (string, bool) {
	joined := filepath.Join(root, filepath.FromSlash(candidate))
	rel, ok := within(root, joined)
	if !ok {
		return "", false
	}
	info, err := os.Stat(joined)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", false
	}
	if _, ok := within(root, resolved); !ok {
		return "", false
	}
	return rel, true
}

// within reports whether target lies under root and returns the
// slash-separated relative path.
func within(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}
