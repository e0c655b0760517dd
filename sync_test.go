package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
)

func testLogger() *slog.Logger {
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

// testProject is a small documented project: app depends on auth, auth on
// the database layer.
func testProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "app/main.py", "main")
	writeFile(t, root, "app/.chronicler/main.tech.md", "---\ncomponent_id: my-app\nedges:\n  - target: auth-service\n    type: calls\n---\n# App\n")
	writeFile(t, root, "src/auth.py", "def login(): pass")
	writeFile(t, root, "src/.chronicler/auth.tech.md", "---\ncomponent_id: auth-service\nedges:\n  - target: db-layer\n    type: depends_on\n---\n# Auth\nRetries with backoff.\n")
	writeFile(t, root, "src/util.py", "def helper(): pass")
	return root
}

func testOptions() freshness.Options {
	return freshness.Options{Logger: testLogger()}
}

func newTestDocs(t *testing.T) *docindex.Index {
	t.Helper()
	docs, err := docindex.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { docs.Close() })
	return docs
}

func Test_performSyncVerification_DetectsStaleDocs(t *testing.T) {
	root := testProject(t)
	opts := testOptions()
	if _, err := freshness.Scan(context.Background(), root, opts); err != nil {
		t.Fatalf("scan: %v", err)
	}
	writeFile(t, root, "src/auth.py", "def login(user): pass")

	docs := newTestDocs(t)
	result, err := performSyncVerification(context.Background(), root, opts, docs, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stale != 1 {
		t.Errorf("expected 1 stale doc, got %d", result.Stale)
	}
	if result.Uncovered != 1 {
		t.Errorf("expected 1 uncovered source, got %d", result.Uncovered)
	}
	if result.Docs != 2 {
		t.Errorf("expected 2 indexed docs, got %d", result.Docs)
	}
	if _, ok := docs.Get("src/.chronicler/auth.tech.md"); !ok {
		t.Error("expected auth doc to be searchable after sync")
	}
}

func Test_performSyncVerification_DoesNotWriteTree(t *testing.T) {
	root := testProject(t)
	opts := testOptions()

	result, err := performSyncVerification(context.Background(), root, opts, newTestDocs(t), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stale != 0 {
		t.Errorf("expected no drift without a baseline, got %d", result.Stale)
	}
	if _, err := os.Stat(opts.TreePath(root)); !os.IsNotExist(err) {
		t.Errorf("expected no tree to be written, stat err = %v", err)
	}
}

func Test_performSyncVerification_DropsDeletedDocs(t *testing.T) {
	root := testProject(t)
	docs := newTestDocs(t)
	if _, err := performSyncVerification(context.Background(), root, testOptions(), docs, testLogger()); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	if err := os.Remove(filepath.Join(root, "app", ".chronicler", "main.tech.md")); err != nil {
		t.Fatal(err)
	}
	result, err := performSyncVerification(context.Background(), root, testOptions(), docs, testLogger())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.Docs != 1 {
		t.Errorf("expected 1 indexed doc, got %d", result.Docs)
	}
	if _, ok := docs.Get("app/.chronicler/main.tech.md"); ok {
		t.Error("expected deleted doc to be removed from the index")
	}
}

func Test_runPeriodicSync_StopsOnSignal(t *testing.T) {
	root := testProject(t)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		runPeriodicSync(context.Background(), time.Hour, root, testOptions(), newTestDocs(t), testLogger(), stop)
		close(done)
	}()

	close(stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runPeriodicSync did not stop within timeout")
	}
}

func Test_runPeriodicSync_StopsOnContextCancel(t *testing.T) {
	root := testProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		runPeriodicSync(ctx, time.Hour, root, testOptions(), newTestDocs(t), testLogger(), make(chan struct{}))
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runPeriodicSync did not stop after cancel")
	}
}

func Test_newScanFunc_RefreshesDocsAndClearsChanges(t *testing.T) {
	root := testProject(t)
	docs := newTestDocs(t)
	cleared := false

	scan := newScanFunc(root, testOptions(), docs, func() { cleared = true })
	result, err := scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.FirstScan {
		t.Error("expected first scan")
	}
	if docs.Count() != 2 {
		t.Errorf("expected 2 indexed docs, got %d", docs.Count())
	}
	if !cleared {
		t.Error("expected onScanned to run")
	}
}
