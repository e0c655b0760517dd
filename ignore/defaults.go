package ignore

// DefaultNames are path segments that are always skipped when walking a
// project: version control metadata, dependency caches, virtualenvs and
// build output. A path is ignored if any of its segments equals one of these.
var DefaultNames = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies
	"node_modules",

	// Python
	"__pycache__",
	".venv",
	"venv",
	".tox",

	// Build output
	"build",
	"dist",
}

// RuleFiles are the gitignore-syntax files read from the project root when
// gitignore support is enabled.
var RuleFiles = []string{".gitignore", ".chroniclerignore"}
