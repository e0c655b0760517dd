package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/freshness"
)

// ScanArgs defines the input parameters for the chronicler_scan tool.
type ScanArgs struct{}

// ScanFunc rebuilds and persists the tree. It is provided by main.go so the
// doc search index is refreshed along with it.
type ScanFunc func(ctx context.Context) (*freshness.ScanResult, error)

// ScanHandler holds the dependencies for the scan tool.
type ScanHandler struct {
	DoScan ScanFunc
	Logger *slog.Logger
}

// Handle processes a chronicler_scan request.
func (h *ScanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ScanArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("chronicler_scan started")
	start := time.Now()

	result, err := h.DoScan(ctx)
	if err != nil {
		h.Logger.Error("chronicler_scan failed", "error", err)
		return errorResult(fmt.Sprintf("Scan error: %v", err)), nil, nil
	}

	elapsed := time.Since(start)
	h.Logger.Info("chronicler_scan complete",
		"files", len(result.Tree.Files()),
		"rootHash", result.Tree.RootHash,
		"elapsed", elapsed,
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatScanSummary(result, elapsed)}},
	}, nil, nil
}
