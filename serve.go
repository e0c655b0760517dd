package main

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/server"
	"github.com/shihwesley/chronicler/tools"
)

// serve runs the MCP server on stdio until ctx is done or the client
// disconnects.
func (a *app) serve(ctx context.Context) error {
	startTime := time.Now()
	opts := a.options()

	a.logger.Info("starting chronicler MCP server",
		"root", a.root,
		"docDir", opts.DocDir,
		"syncInterval", a.cfg.SyncInterval(),
	)

	docs, err := docindex.New()
	if err != nil {
		return fmt.Errorf("creating doc index: %w", err)
	}
	defer docs.Close()

	if _, err := refreshDocs(docs, opts.DocScanner(a.root), a.logger); err != nil {
		a.logger.Warn("initial doc indexing failed", "error", err)
	}

	statusHandler := &tools.StatusHandler{
		Root:      a.root,
		Options:   opts,
		Docs:      docs,
		StartTime: startTime,
		Logger:    a.logger,
	}
	onScanned := func() {}

	changes, err := freshness.NewWatcher(a.root, opts, a.cfg.Debounce(), logBatch(a.logger))
	if err != nil {
		a.logger.Warn("failed to start file watcher, continuing without change tracking", "error", err)
	} else {
		changes.Start()
		defer changes.Stop()
		statusHandler.Changes = changes
		onScanned = changes.Clear
	}

	stop := make(chan struct{})
	defer close(stop)
	if interval := a.cfg.SyncInterval(); interval > 0 {
		go runPeriodicSync(ctx, interval, a.root, opts, docs, a.logger, stop)
	}

	mcpServer := server.Setup(server.Handlers{
		Check:  &tools.CheckHandler{Root: a.root, Options: opts, Logger: a.logger},
		Status: statusHandler,
		BlastRadius: &tools.BlastRadiusHandler{
			Root:         a.root,
			Options:      opts,
			DefaultDepth: a.cfg.Blast.Depth,
			Logger:       a.logger,
		},
		Scan:    &tools.ScanHandler{DoScan: newScanFunc(a.root, opts, docs, onScanned), Logger: a.logger},
		Search:  &tools.SearchHandler{Docs: docs, Logger: a.logger},
		ReadDoc: &tools.ReadDocHandler{Docs: docs, Logger: a.logger},
	})

	a.logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
