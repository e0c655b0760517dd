package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/shihwesley/chronicler/docindex"
	"github.com/shihwesley/chronicler/freshness"
)

// SyncResult holds the outcome of a single drift verification run.
type SyncResult struct {
	Stale     int // sources whose doc drifted
	Uncovered int // sources without a doc
	Orphaned  int // docs describing nothing
	Docs      int // docs in the search index after the run
	Duration  time.Duration
}

// runPeriodicSync verifies drift and reloads the doc index at the given
// interval. It runs until ctx is done or stop is closed.
func runPeriodicSync(
	ctx context.Context,
	interval time.Duration,
	root string,
	opts freshness.Options,
	docs *docindex.Index,
	logger *slog.Logger,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-stop:
			logger.Info("periodic sync stopped")
			return
		case <-ctx.Done():
			logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			result, err := performSyncVerification(ctx, root, opts, docs, logger)
			if err != nil {
				logger.Warn("sync verification failed", "error", err)
				continue
			}
			if result.Stale > 0 {
				logger.Info("sync verification complete",
					"stale", result.Stale,
					"uncovered", result.Uncovered,
					"orphaned", result.Orphaned,
					"docs", result.Docs,
					"duration", result.Duration,
				)
			} else {
				logger.Debug("sync verification complete, docs are fresh", "docs", result.Docs, "duration", result.Duration)
			}
		}
	}
}

// performSyncVerification checks the project against its saved tree, logs
// every drifted source and reloads the doc index. It never writes the tree.
func performSyncVerification(
	ctx context.Context,
	root string,
	opts freshness.Options,
	docs *docindex.Index,
	logger *slog.Logger,
) (SyncResult, error) {
	start := time.Now()

	report, err := freshness.Check(ctx, root, opts)
	if err != nil {
		return SyncResult{}, err
	}
	for _, entry := range report.Stale {
		logger.Info("sync: stale doc", "path", entry.SourcePath, "doc", entry.DocPath)
	}

	indexed, err := refreshDocs(docs, opts.DocScanner(root), logger)
	if err != nil {
		return SyncResult{}, err
	}

	return SyncResult{
		Stale:     len(report.Stale),
		Uncovered: len(report.Uncovered),
		Orphaned:  len(report.Orphaned),
		Docs:      indexed,
		Duration:  time.Since(start),
	}, nil
}
