package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/techdoc"
	"github.com/shihwesley/chronicler/tools"
	"github.com/shihwesley/chronicler/watcher"
)

// refreshDocs reloads every doc artifact under the project into the search
// index and returns how many were indexed.
func refreshDocs(docs *docindex.Index, scanner techdoc.Scanner, logger *slog.Logger) (int, error) {
	start := time.Now()
	all, err := scanner.Docs()
	if err != nil {
		return 0, fmt.Errorf("loading docs: %w", err)
	}
	if err := docs.Replace(all); err != nil {
		return 0, fmt.Errorf("indexing docs: %w", err)
	}
	logger.Debug("doc index refreshed", "docs", len(all), "duration", time.Since(start))
	return len(all), nil
}

// newScanFunc returns the operation behind the scan tool: rebuild and save
// the tree, then reload the doc index. onScanned runs after a successful
// scan.
func newScanFunc(root string, opts freshness.Options, docs *docindex.Index, onScanned func()) tools.ScanFunc {
	return func(ctx context.Context) (*freshness.ScanResult, error) {
		result, err := freshness.Scan(ctx, root, opts)
		if err != nil {
			return nil, err
		}
		if _, err := refreshDocs(docs, opts.DocScanner(root), opts.Logger); err != nil {
			return nil, err
		}
		onScanned()
		return result, nil
	}
}

// logBatch logs each debounced batch of source changes.
func logBatch(logger *slog.Logger) freshness.BatchFunc {
	return func(batch []watcher.DebouncedEvent) {
		paths := make([]string, len(batch))
		for i, event := range batch {
			paths[i] = event.RelativePath
		}
		logger.Info("sources changed", "count", len(batch), "paths", paths)
	}
}
