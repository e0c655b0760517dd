package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Matcher_DefaultNames_NodeModules(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	nodePath := filepath.Join(tmpDir, "node_modules", "express", "index.js")
	if !matcher.ShouldIgnore(nodePath) {
		t.Error("expected node_modules files to be ignored")
	}
}

func Test_Matcher_DefaultNames_NestedSegment(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})

	if !matcher.MatchRelative("pkg/sub/__pycache__/mod.pyc", false) {
		t.Error("expected a nested __pycache__ segment to be ignored")
	}
	if !matcher.MatchRelative("web/dist/app.js", false) {
		t.Error("expected a dist segment to be ignored")
	}
}

func Test_Matcher_SegmentMatchIsExact(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})

	if matcher.MatchRelative("src/builder.py", false) {
		t.Error("expected builder.py to NOT match the build segment")
	}
	if matcher.MatchRelative("distance/calc.go", false) {
		t.Error("expected distance/ to NOT match the dist segment")
	}
}

func Test_Matcher_AllowsSourceFiles(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	goPath := filepath.Join(tmpDir, "src", "main.go")
	if matcher.ShouldIgnore(goPath) {
		t.Error("expected source files to NOT be ignored")
	}
}

func Test_Matcher_ExtraNames(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir: tmpDir,
		Names:   []string{".chronicler", "fixtures/"},
	})

	if !matcher.ShouldIgnore(filepath.Join(tmpDir, "src", ".chronicler", "a.tech.md")) {
		t.Error("expected doc directory contents to be ignored")
	}
	if !matcher.MatchRelative("testdata/fixtures/x.json", false) {
		t.Error("expected trailing slash to be trimmed from extra names")
	}
}

func Test_Matcher_RootIsNeverIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	if matcher.ShouldIgnore(tmpDir) {
		t.Error("expected the root itself to NOT be ignored")
	}
	if matcher.ShouldIgnore(filepath.Join(filepath.Dir(tmpDir), "node_modules")) {
		t.Error("expected paths outside the root to NOT be matched")
	}
}

func Test_Matcher_GitignoreDisabledByDefault(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.log\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	if matcher.ShouldIgnore(filepath.Join(tmpDir, "debug.log")) {
		t.Error("expected .gitignore rules to be ignored unless enabled")
	}
}

func Test_Matcher_GitignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.generated.go\nsecret/\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})

	if !matcher.ShouldIgnore(filepath.Join(tmpDir, "models.generated.go")) {
		t.Error("expected .gitignore pattern to ignore *.generated.go")
	}
	if matcher.ShouldIgnore(filepath.Join(tmpDir, "main.go")) {
		t.Error("expected normal .go files to NOT be ignored by .gitignore")
	}
}

func Test_Matcher_ChroniclerignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ".chroniclerignore"), []byte("*.draft.md\n"), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})

	if !matcher.ShouldIgnore(filepath.Join(tmpDir, "notes.draft.md")) {
		t.Error("expected .chroniclerignore pattern to ignore *.draft.md")
	}
}

func Test_Matcher_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir, RespectGitignore: true})

	target := filepath.Join(tmpDir, "out.tmp")
	if matcher.ShouldIgnore(target) {
		t.Fatal("expected out.tmp to NOT be ignored before rules exist")
	}

	os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.tmp\n"), 0644)
	matcher.Reload()

	if !matcher.ShouldIgnore(target) {
		t.Error("expected out.tmp to be ignored after Reload")
	}
}

func Test_Matcher_ShouldIgnoreDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	tests := []struct {
		dirName string
		ignored bool
	}{
		{".git", true},
		{"node_modules", true},
		{"__pycache__", true},
		{".tox", true},
		{"src", false},
		{"lib", false},
	}

	for _, tt := range tests {
		dirPath := filepath.Join(tmpDir, tt.dirName)
		got := matcher.ShouldIgnoreDir(dirPath)
		if got != tt.ignored {
			t.Errorf("ShouldIgnoreDir(%s) = %v, want %v", tt.dirName, got, tt.ignored)
		}
	}
}

func Test_Matcher_Names(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir(), Names: []string{"zzz"}})

	names := matcher.Names()
	if len(names) != len(DefaultNames)+1 {
		t.Fatalf("expected %d names, got %d", len(DefaultNames)+1, len(names))
	}
	if names[len(names)-1] != "zzz" {
		t.Errorf("expected sorted names ending in zzz, got %v", names)
	}
}

func Test_IsRuleFile(t *testing.T) {
	if !IsRuleFile(".gitignore") || !IsRuleFile(".chroniclerignore") {
		t.Error("expected both rule files to be recognized")
	}
	if IsRuleFile("main.go") {
		t.Error("expected main.go to NOT be a rule file")
	}
}
