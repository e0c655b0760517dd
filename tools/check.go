package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/freshness"
)

// CheckArgs defines the input parameters for the chronicler_check tool.
type CheckArgs struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"Optional glob to limit reported stale sources (e.g. src/**/*.py)"`
}

// CheckHandler holds the dependencies for the check tool.
type CheckHandler struct {
	Root    string
	Options freshness.Options
	Logger  *slog.Logger
}

// Handle processes a chronicler_check request. A project without a
// persisted tree gets one, and the reply says no baseline existed yet.
func (h *CheckHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CheckArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern != "" && !doublestar.ValidatePattern(args.Pattern) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: invalid pattern: %s", args.Pattern)}},
			IsError: true,
		}, nil, nil
	}

	report, err := freshness.CheckOrInit(ctx, h.Root, h.Options)
	if err != nil {
		h.Logger.Error("chronicler_check failed", "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Check error: %v", err)}},
			IsError: true,
		}, nil, nil
	}

	if args.Pattern != "" {
		filtered := report.Stale[:0:0]
		for _, entry := range report.Stale {
			if ok, _ := doublestar.Match(args.Pattern, entry.SourcePath); ok {
				filtered = append(filtered, entry)
			}
		}
		report.Stale = filtered
	}

	h.Logger.Info("chronicler_check",
		"pattern", args.Pattern,
		"stale", len(report.Stale),
		"firstScan", report.FirstScan,
		"elapsed", time.Since(start),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatCheckPlain(report)}},
	}, nil, nil
}
