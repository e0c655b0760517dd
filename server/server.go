// Package server wires the chronicler tool handlers into an MCP server.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/tools"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Handlers groups the tool handlers served over MCP.
type Handlers struct {
	Check       *tools.CheckHandler
	Status      *tools.StatusHandler
	BlastRadius *tools.BlastRadiusHandler
	Scan        *tools.ScanHandler
	Search      *tools.SearchHandler
	ReadDoc     *tools.ReadDocHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "chronicler",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server tracks whether a project's technical docs (.tech.md files under .chronicler/ directories) still match the source they describe. It keeps a merkle tree of source and doc hashes and reports drift.

Use these tools when working with documented code:
- Use chronicler_check after editing source files to see which docs went stale
- Use chronicler_blast_radius before a change to see which components depend on a file
- Use chronicler_search and chronicler_read_doc to find and read component docs
- Use chronicler_status for coverage: fresh, stale, uncovered and orphaned counts
- Use chronicler_scan to record the current project state as the new baseline`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "chronicler_check",
		Description: `Report source files whose doc is stale, one "STALE <path>" line each, followed by the root hash.

The first call on a project builds and saves the baseline tree and reports no drift.
pattern: optional glob to limit the report (e.g. "src/**/*.py").`,
	}, h.Check.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "chronicler_status",
		Description: "Show documentation health: fresh, stale, uncovered and orphaned counts with the affected paths, plus root hash and uptime.",
	}, h.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "chronicler_blast_radius",
		Description: `List components affected by a change to a source file, grouped by hop distance.

Edges come from the component_id and edges frontmatter of .tech.md docs and are followed in both directions.
changed: relative source path. depth: hops to follow (default 2). Requires a prior scan.`,
	}, h.BlastRadius.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "chronicler_scan",
		Description: "Rebuild the merkle tree from disk and save it. Stale docs stay stale until they are regenerated.",
	}, h.Scan.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "chronicler_search",
		Description: `Full-text search over technical docs.

Query formats:
  - Plain text: word-level matching (e.g., "retry")
  - "quoted text": exact phrase matching (e.g., "\"exponential backoff\"")
  - /regex/: regular expression matching (e.g., "/postgres(ql)?/")

Filtering:
  - component: only the doc with this component id
  - pathGlob: glob over doc paths (e.g., "services/**")`,
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "chronicler_read_doc",
		Description: `Read a technical doc body from the search index. Returns numbered lines.`,
	}, h.ReadDoc.Handle)

	return mcpServer
}
