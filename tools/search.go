package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/docindex"
)

// SearchArgs defines the input parameters for the chronicler_search tool.
type SearchArgs struct {
	Query        string `json:"query" jsonschema:"Search query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	Component    string `json:"component,omitempty" jsonschema:"Only search the doc with this component id"`
	PathGlob     string `json:"pathGlob,omitempty" jsonschema:"Optional glob pattern to filter doc paths (e.g. src/**)"`
	MaxResults   int    `json:"maxResults,omitempty" jsonschema:"Maximum number of docs to return (default 50)"`
	ContextLines int    `json:"contextLines,omitempty" jsonschema:"Number of context lines before and after each match (default 2)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Docs   *docindex.Index
	Logger *slog.Logger
}

// Handle processes a chronicler_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("chronicler_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}

	results, totalMatches, err := h.Docs.Search(docindex.SearchOptions{
		Query:        args.Query,
		Component:    args.Component,
		PathGlob:     args.PathGlob,
		MaxResults:   args.MaxResults,
		ContextLines: contextLines,
	})
	if err != nil {
		h.Logger.Error("chronicler_search failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("chronicler_search",
		"query", args.Query,
		"component", args.Component,
		"pathGlob", args.PathGlob,
		"docs", len(results),
		"matches", totalMatches,
		"elapsed", time.Since(start),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(results, totalMatches)}},
	}, nil, nil
}
