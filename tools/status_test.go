package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/techdoc"
)

func Test_FormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"Seconds_zero", 0, "0s"},
		{"Seconds_59", 59 * time.Second, "59s"},
		{"Minutes_5m30s", 5*time.Minute + 30*time.Second, "5m30s"},
		{"Hours_1h30m", 90 * time.Minute, "1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.duration)
			if got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}

func Test_FormatSize(t *testing.T) {
	tests := []struct {
		bytes    uint64
		expected string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
		{1 << 30, "1.0 GB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.expected {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.expected)
		}
	}
}

type fixedChanges []string

func (f fixedChanges) StalePaths() []string { return f }

func Test_StatusHandler_Handle(t *testing.T) {
	root := documentedProject(t)
	writeFile(t, root, ".chronicler/legacy.tech.md", "# Legacy\n")

	docs, err := docindex.New()
	if err != nil {
		t.Fatalf("failed to create doc index: %v", err)
	}
	t.Cleanup(func() { docs.Close() })
	if err := docs.Add(techdoc.Doc{Path: "src/.chronicler/db.tech.md", ComponentID: "db-layer", Body: "# DB"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	h := &StatusHandler{
		Root:      root,
		Docs:      docs,
		Changes:   fixedChanges{"src/auth.py"},
		StartTime: time.Now().Add(-5 * time.Minute),
		Logger:    discardLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected IsError: %s", resultText(t, result))
	}

	text := resultText(t, result)
	for _, want := range []string{
		"=== chronicler Status ===",
		"Uptime: 5m",
		"Searchable docs: 1",
		"Changed since last scan: 1\n  src/auth.py",
		"Uncovered",
		"src/util.py",
		"Orphaned",
		".chronicler/legacy.tech.md",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func Test_StatusHandler_MissingRoot(t *testing.T) {
	h := &StatusHandler{Root: t.TempDir() + "/missing", StartTime: time.Now(), Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for missing root")
	}
}
