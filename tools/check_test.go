package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/freshness"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}

// documentedProject has two documented sources and one undocumented one.
func documentedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/auth.py", "def login(): pass")
	writeFile(t, root, "src/.chronicler/auth.tech.md", "---\ncomponent_id: auth-service\nedges:\n  - target: db-layer\n    type: depends_on\n---\n# Auth\nHandles login with exponential backoff.\n")
	writeFile(t, root, "src/db.py", "def query(): pass")
	writeFile(t, root, "src/.chronicler/db.tech.md", "---\ncomponent_id: db-layer\n---\n# DB\nWraps postgres.\n")
	writeFile(t, root, "src/util.py", "def helper(): pass")
	return root
}

func newTestCheckHandler(root string) *CheckHandler {
	return &CheckHandler{Root: root, Logger: discardLogger()}
}

func Test_CheckHandler_FirstScan(t *testing.T) {
	root := documentedProject(t)
	h := newTestCheckHandler(root)

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected IsError: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "First scan complete: 3 files indexed") {
		t.Errorf("expected first scan message, got: %s", text)
	}
	if _, err := os.Stat(freshness.Options{}.TreePath(root)); err != nil {
		t.Errorf("expected tree to be persisted: %v", err)
	}
}

func Test_CheckHandler_ReportsStale(t *testing.T) {
	root := documentedProject(t)
	h := newTestCheckHandler(root)
	if _, _, err := h.Handle(context.Background(), nil, CheckArgs{}); err != nil {
		t.Fatalf("first check: %v", err)
	}

	writeFile(t, root, "src/auth.py", "def login(user): pass")
	writeFile(t, root, "src/db.py", "def query(sql): pass")

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"STALE src/auth.py", "STALE src/db.py", "root_hash="} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
}

func Test_CheckHandler_PatternFilter(t *testing.T) {
	root := documentedProject(t)
	h := newTestCheckHandler(root)
	if _, _, err := h.Handle(context.Background(), nil, CheckArgs{}); err != nil {
		t.Fatalf("first check: %v", err)
	}
	writeFile(t, root, "src/auth.py", "changed")
	writeFile(t, root, "src/db.py", "changed")

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{Pattern: "**/auth.*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "STALE src/auth.py") {
		t.Errorf("expected auth.py to be reported, got: %s", text)
	}
	if strings.Contains(text, "src/db.py") {
		t.Errorf("expected db.py to be filtered out, got: %s", text)
	}
}

func Test_CheckHandler_Clean(t *testing.T) {
	root := documentedProject(t)
	h := newTestCheckHandler(root)
	if _, _, err := h.Handle(context.Background(), nil, CheckArgs{}); err != nil {
		t.Fatalf("first check: %v", err)
	}

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); !strings.Contains(text, "OK: all docs up to date") {
		t.Errorf("expected OK line, got: %s", text)
	}
}

func Test_CheckHandler_InvalidPattern(t *testing.T) {
	h := newTestCheckHandler(t.TempDir())

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{Pattern: "src/[a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for invalid pattern")
	}
}

func Test_CheckHandler_MissingRoot(t *testing.T) {
	h := newTestCheckHandler(filepath.Join(t.TempDir(), "missing"))

	result, _, err := h.Handle(context.Background(), nil, CheckArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for missing root")
	}
	if text := resultText(t, result); !strings.Contains(text, "Check error") {
		t.Errorf("expected check error, got: %s", text)
	}
}
