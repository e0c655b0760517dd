package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
)

// StatusArgs defines the input parameters for the chronicler_status tool (none required).
type StatusArgs struct{}

// ChangeTracker reports source paths modified since the last scan.
type ChangeTracker interface {
	StalePaths() []string
}

// StatusHandler holds the dependencies for the status tool. Docs and
// Changes are optional.
type StatusHandler struct {
	Root      string
	Options   freshness.Options
	Docs      *docindex.Index
	Changes   ChangeTracker
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a chronicler_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	report, err := freshness.Check(ctx, h.Root, h.Options)
	if err != nil {
		h.Logger.Error("chronicler_status failed", "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Status error: %v", err)}},
			IsError: true,
		}, nil, nil
	}

	uptime := time.Since(h.StartTime)
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("chronicler_status",
		"files", report.TotalFiles,
		"stale", len(report.Stale),
		"uncovered", len(report.Uncovered),
		"orphaned", len(report.Orphaned),
		"uptime", uptime,
	)

	var builder strings.Builder
	builder.WriteString("=== chronicler Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", report.Tree.RootPath))
	builder.WriteString(fmt.Sprintf("Root hash: %s\n", report.Tree.RootHash))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	if h.Docs != nil {
		builder.WriteString(fmt.Sprintf("Searchable docs: %d\n", h.Docs.Count()))
	}
	builder.WriteString(fmt.Sprintf("Memory usage: %s\n", formatSize(memStats.HeapAlloc)))
	if h.Changes != nil {
		changed := h.Changes.StalePaths()
		builder.WriteString(fmt.Sprintf("Changed since last scan: %d\n", len(changed)))
		for _, p := range changed {
			builder.WriteString(fmt.Sprintf("  %s\n", p))
		}
	}
	builder.WriteString("\n")
	if report.FirstScan {
		builder.WriteString(FormatFirstScan(report) + "\n\n")
	}
	builder.WriteString(FormatStatus(report))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

func formatSize(bytes uint64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
