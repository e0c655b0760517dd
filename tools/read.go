package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/docindex"
)

// ReadDocArgs defines the input parameters for the chronicler_read_doc tool.
type ReadDocArgs struct {
	Path string `json:"path" jsonschema:"Relative path of the doc (e.g. src/.chronicler/auth.tech.md)"`
}

// ReadDocHandler holds the dependencies for the read doc tool.
type ReadDocHandler struct {
	Docs   *docindex.Index
	Logger *slog.Logger
}

// Handle processes a chronicler_read_doc request.
func (h *ReadDocHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadDocArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		h.Logger.Warn("chronicler_read_doc called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	doc, ok := h.Docs.Get(args.Path)
	if !ok {
		h.Logger.Info("chronicler_read_doc not found", "path", args.Path)
		return errorResult(fmt.Sprintf("Doc not found in index: %s", args.Path)), nil, nil
	}

	h.Logger.Info("chronicler_read_doc", "path", doc.Path, "component", doc.ComponentID)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatDocContent(doc.Path, doc.ComponentID, doc.Body)}},
	}, nil, nil
}
