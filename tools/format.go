package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/shihwesley/chronicler/blast"
	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
)

// FormatSearchResults formats doc search results as human-readable text.
// Groups matches by doc with line numbers and optional context.
func FormatSearchResults(results []docindex.Result, totalMatches int) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d matches in %d docs:\n\n", totalMatches, len(results)))

	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s [%s] ──\n", result.Path, result.ComponentID))

		for _, match := range result.Matches {
			for _, ctxLine := range match.ContextBefore {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
			builder.WriteString(fmt.Sprintf("  %d: %s\n", match.LineNumber, match.LineText))
			for _, ctxLine := range match.ContextAfter {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
		}
	}

	return builder.String()
}

// FormatDocContent formats a doc body with line numbers.
func FormatDocContent(doc string, componentID string, body string) string {
	lines := strings.Split(body, "\n")
	lineCount := len(lines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s [%s] (%d lines) ──\n", doc, componentID, lineCount))

	width := len(fmt.Sprintf("%d", lineCount))
	for i, line := range lines {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}

	return builder.String()
}

// FormatFirstScan is the message shown when a check had no baseline.
func FormatFirstScan(report *freshness.Report) string {
	return fmt.Sprintf("First scan complete: %d files indexed, no drift baseline yet.", len(report.Tree.Files()))
}

// FormatCheckPlain lists stale sources one per line followed by the root
// hash. It is stable for scripts and CI logs.
func FormatCheckPlain(report *freshness.Report) string {
	if report.FirstScan {
		return FormatFirstScan(report) + "\n"
	}
	var builder strings.Builder
	for _, entry := range report.Stale {
		builder.WriteString(fmt.Sprintf("STALE %s\n", entry.SourcePath))
	}
	if len(report.Stale) == 0 {
		builder.WriteString("OK: all docs up to date\n")
	}
	builder.WriteString(fmt.Sprintf("root_hash=%s\n", report.Tree.RootHash))
	return builder.String()
}

// FormatCheckTable lists every tracked file with its status and doc.
func FormatCheckTable(report *freshness.Report) string {
	if report.FirstScan {
		return FormatFirstScan(report) + "\n"
	}
	files := report.Tree.Files()
	width := len("File")
	for _, node := range files {
		width = max(width, len(node.Path))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-*s  %-6s  %s\n", width, "File", "Status", "Doc"))
	for _, node := range files {
		status := "ok"
		if node.Stale {
			status = "stale"
		}
		doc := node.DocPath
		if doc == "" {
			doc = "-"
		}
		builder.WriteString(fmt.Sprintf("%-*s  %-6s  %s\n", width, node.Path, status, doc))
	}
	builder.WriteString(fmt.Sprintf("\nRoot hash: %s\n", report.Tree.RootHash))
	if n := len(report.Stale); n > 0 {
		builder.WriteString(fmt.Sprintf("%d stale doc(s) found.\n", n))
	} else {
		builder.WriteString("All docs up to date.\n")
	}
	return builder.String()
}

// FormatStatus renders the freshness counts as a two-column table followed
// by the stale, uncovered and orphaned paths.
func FormatStatus(report *freshness.Report) string {
	var builder strings.Builder
	rows := []struct {
		label string
		value int
	}{
		{"Fresh", report.Fresh()},
		{"Stale", len(report.Stale)},
		{"Uncovered", len(report.Uncovered)},
		{"Orphaned", len(report.Orphaned)},
		{"Total files", report.TotalFiles},
		{"Total docs", report.TotalDocs},
	}
	for _, row := range rows {
		builder.WriteString(fmt.Sprintf("  %-12s %6d\n", row.label, row.value))
	}

	if len(report.Stale) > 0 {
		builder.WriteString("\nStale:\n")
		for _, entry := range report.Stale {
			doc := entry.DocPath
			if doc == "" {
				doc = "-"
			}
			builder.WriteString(fmt.Sprintf("  %s -> %s (%s != %s)\n", entry.SourcePath, doc, entry.CurrentHash, entry.RecordedHash))
		}
	}
	writePathList(&builder, "Uncovered", report.Uncovered)
	writePathList(&builder, "Orphaned", report.Orphaned)
	return builder.String()
}

func writePathList(builder *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	builder.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, p := range paths {
		builder.WriteString(fmt.Sprintf("  %s\n", p))
	}
}

// FormatBlastRadius groups the impacted components by hop distance.
func FormatBlastRadius(result *blast.Result) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Blast radius for: %s\n", result.Changed))
	builder.WriteString(fmt.Sprintf("Direct impact: %s\n", result.Start))

	if len(result.Impacts) == 0 {
		builder.WriteString("\nNo downstream impact detected.\n")
		return builder.String()
	}
	for i, level := range result.Levels() {
		if len(level) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\n%d-hop dependencies:\n", i+1))
		for _, impact := range level {
			if impact.Via != "" {
				builder.WriteString(fmt.Sprintf("  - %s (%s)\n", impact.Component, impact.Via))
			} else {
				builder.WriteString(fmt.Sprintf("  - %s\n", impact.Component))
			}
		}
	}
	return builder.String()
}

// FormatScanSummary describes what a scan recorded.
func FormatScanSummary(result *freshness.ScanResult, elapsed time.Duration) string {
	files := len(result.Tree.Files())
	if result.FirstScan {
		return fmt.Sprintf("First scan complete: %d files indexed in %s\nroot_hash=%s\n",
			files, elapsed.Round(time.Millisecond), result.Tree.RootHash)
	}

	d := result.Diff
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Scan complete: %d files in %s\n", files, elapsed.Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("  changed: %d, added: %d, removed: %d, stale: %d\n",
		len(d.Changed), len(d.Added), len(d.Removed), len(d.Stale)))
	if rootHash := result.Tree.RootHash; rootHash != d.OldRootHash {
		builder.WriteString(fmt.Sprintf("root_hash=%s (was %s)\n", rootHash, d.OldRootHash))
	} else {
		builder.WriteString(fmt.Sprintf("root_hash=%s (unchanged)\n", rootHash))
	}
	for _, p := range d.Stale {
		builder.WriteString(fmt.Sprintf("STALE %s\n", p))
	}
	return builder.String()
}
