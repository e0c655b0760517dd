package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/blast"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/merkle"
)

// BlastRadiusArgs defines the input parameters for the chronicler_blast_radius tool.
type BlastRadiusArgs struct {
	Changed string `json:"changed" jsonschema:"Relative path of the changed source file (e.g. src/auth.py)"`
	Depth   *int   `json:"depth,omitempty" jsonschema:"Maximum number of hops to follow (default 2)"`
}

// BlastRadiusHandler holds the dependencies for the blast radius tool.
type BlastRadiusHandler struct {
	Root         string
	Options      freshness.Options
	DefaultDepth int
	Logger       *slog.Logger
}

// Handle processes a chronicler_blast_radius request.
func (h *BlastRadiusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args BlastRadiusArgs) (*mcp.CallToolResult, any, error) {
	if args.Changed == "" {
		h.Logger.Warn("chronicler_blast_radius called with empty changed")
		return errorResult("Error: changed parameter is required"), nil, nil
	}
	depth := h.DefaultDepth
	if args.Depth != nil {
		depth = *args.Depth
	}

	result, err := freshness.BlastRadius(h.Root, args.Changed, depth, h.Options)
	switch {
	case errors.Is(err, merkle.ErrNoBaseline):
		return errorResult("No merkle tree found. Run a scan first."), nil, nil
	case errors.Is(err, merkle.ErrNotFound):
		return errorResult(fmt.Sprintf("File not tracked: %s", args.Changed)), nil, nil
	case errors.Is(err, blast.ErrInvalidDepth):
		return errorResult(fmt.Sprintf("Error: depth must be >= 0, got %d", depth)), nil, nil
	case err != nil:
		h.Logger.Error("chronicler_blast_radius failed", "changed", args.Changed, "error", err)
		return errorResult(fmt.Sprintf("Blast radius error: %v", err)), nil, nil
	}

	h.Logger.Info("chronicler_blast_radius",
		"changed", args.Changed,
		"start", result.Start,
		"depth", depth,
		"impacted", len(result.Impacts),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatBlastRadius(result)}},
	}, nil, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
