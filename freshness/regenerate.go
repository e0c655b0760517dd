package freshness

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shihwesley/chronicler/digest"
	"github.com/shihwesley/chronicler/merkle"
)

// Drafter regenerates the doc for a single source file.
type Drafter interface {
	DraftSingle(ctx context.Context, sourcePath string) error
}

// ExecDrafter runs an external command with the root-relative source path
// appended as its last argument. The command runs in Dir.
type ExecDrafter struct {
	Command string
	Args    []string
	Dir     string
}

// NewExecDrafter splits commandLine on whitespace into a command and its
// leading arguments.
func NewExecDrafter(commandLine, dir string) (ExecDrafter, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return ExecDrafter{}, errors.New("empty drafter command")
	}
	return ExecDrafter{Command: fields[0], Args: fields[1:], Dir: dir}, nil
}

func (d ExecDrafter) DraftSingle(ctx context.Context, sourcePath string) error {
	cmd := exec.CommandContext(ctx, d.Command, append(slices.Clone(d.Args), sourcePath)...)
	cmd.Dir = d.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("running %s: %w: %s", d.Command, err, msg)
		}
		return fmt.Errorf("running %s: %w", d.Command, err)
	}
	return nil
}

// Failure is a stale source whose doc could not be regenerated.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RegenerationReport is the outcome of RegenerateStale.
type RegenerationReport struct {
	Regenerated []string  `json:"regenerated"`
	Failed      []Failure `json:"failed"`
	Skipped     []string  `json:"skipped"`
	// Saved is set when the refreshed tree was persisted.
	Saved bool `json:"saved"`
}

// RegenerateStale hands every stale source to drafter and records the
// refreshed hashes of each one that succeeds. With a nil drafter every
// stale source is skipped. The tree is persisted when any node changed.
func RegenerateStale(ctx context.Context, projectPath string, drafter Drafter, opts Options) (*RegenerationReport, error) {
	opts = opts.withDefaults()
	report, err := Check(ctx, projectPath, opts)
	if err != nil {
		return nil, err
	}

	result := &RegenerationReport{
		Regenerated: []string{},
		Failed:      []Failure{},
		Skipped:     []string{},
	}
	if len(report.Stale) == 0 {
		return result, nil
	}
	if drafter == nil {
		for _, entry := range report.Stale {
			result.Skipped = append(result.Skipped, entry.SourcePath)
		}
		return result, nil
	}

	root := report.Tree.RootPath
	tree := report.Tree
	updated := false
	for _, entry := range report.Stale {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := drafter.DraftSingle(ctx, entry.SourcePath); err != nil {
			opts.Logger.Warn("regeneration failed", "path", entry.SourcePath, "error", err)
			result.Failed = append(result.Failed, Failure{Path: entry.SourcePath, Reason: err.Error()})
			continue
		}

		sourceHash, err := digest.File(filepath.Join(root, filepath.FromSlash(entry.SourcePath)))
		if err != nil {
			// Drafted, but the source vanished meanwhile; the next scan drops it.
			opts.Logger.Debug("source unreadable after drafting", "path", entry.SourcePath, "error", err)
			result.Regenerated = append(result.Regenerated, entry.SourcePath)
			continue
		}
		var docHash digest.Digest
		if entry.DocPath != "" {
			if h, hashErr := digest.File(filepath.Join(root, filepath.FromSlash(entry.DocPath))); hashErr == nil {
				docHash = h
			}
		}

		refreshed, err := tree.UpdateNode(entry.SourcePath, sourceHash, docHash)
		if err != nil {
			return nil, fmt.Errorf("updating %s: %w", entry.SourcePath, err)
		}
		tree = refreshed
		updated = true
		result.Regenerated = append(result.Regenerated, entry.SourcePath)
		opts.Logger.Info("regenerated doc", "path", entry.SourcePath, "doc", entry.DocPath)
	}

	if updated {
		if err := merkle.Save(opts.TreePath(root), tree); err != nil {
			return nil, err
		}
		result.Saved = true
	}
	return result, nil
}
