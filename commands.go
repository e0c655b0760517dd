package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shihwesley/chronicler/blast"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/merkle"
	"github.com/shihwesley/chronicler/register"
	"github.com/shihwesley/chronicler/tools"
	"github.com/shihwesley/chronicler/watcher"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Rebuild the merkle tree and save it as the new baseline",
		Long: `Walks the project, hashes every source and its paired doc, and saves the
tree. On later scans the previous tree is compared with the new one and the
changed, added, removed and stale counts are printed. Sources whose doc was
not regenerated stay stale.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			result, err := freshness.Scan(cmd.Context(), a.root, a.options())
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, tools.FormatScanSummary(result, time.Since(start)))
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var ci, failOnStale, jsonOut bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List sources whose doc is stale",
		Long: `Compares every tracked source with the hash recorded in the saved tree.
Without a saved tree the current project is recorded as the baseline and no
drift is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := freshness.CheckOrInit(cmd.Context(), a.root, a.options())
			if err != nil {
				return err
			}
			switch {
			case jsonOut:
				if err := writeJSON(a.stdout, report); err != nil {
					return err
				}
			case ci:
				fmt.Fprint(a.stdout, tools.FormatCheckPlain(report))
			default:
				fmt.Fprint(a.stdout, tools.FormatCheckTable(report))
			}
			if failOnStale && len(report.Stale) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ci, "ci", false, "Plain output: one STALE line per source, then the root hash")
	cmd.Flags().BoolVar(&failOnStale, "fail-on-stale", false, "Exit with status 1 when any doc is stale")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show fresh, stale, uncovered and orphaned counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := freshness.Check(cmd.Context(), a.root, a.options())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.stdout, report)
			}
			if report.FirstScan {
				fmt.Fprintln(a.stdout, tools.FormatFirstScan(report))
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprint(a.stdout, tools.FormatStatus(report))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func newBlastRadiusCmd(a *app) *cobra.Command {
	var changed string
	var depth int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "blast-radius",
		Short: "List components reachable from a changed source file",
		Long: `Resolves the changed file to the component named in its doc frontmatter and
follows the edges declared by every doc, in both directions, up to --depth
hops. Requires a saved tree (run scan first).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("depth") {
				depth = a.cfg.Blast.Depth
			}
			result, err := freshness.BlastRadius(a.root, changed, depth, a.options())
			switch {
			case errors.Is(err, merkle.ErrNoBaseline):
				return fmt.Errorf("no merkle tree found, run scan first: %w", err)
			case errors.Is(err, blast.ErrInvalidDepth):
				return fmt.Errorf("--depth must be >= 0: %w", err)
			case err != nil:
				return err
			}
			if jsonOut {
				return writeJSON(a.stdout, result)
			}
			fmt.Fprint(a.stdout, tools.FormatBlastRadius(result))
			return nil
		},
	}
	cmd.Flags().StringVar(&changed, "changed", "", "Relative path of the changed source file")
	cmd.Flags().IntVar(&depth, "depth", 2, "Maximum number of hops (default: config blast.depth)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("changed")
	return cmd
}

func newRegenerateCmd(a *app) *cobra.Command {
	var drafterCmd string
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Run a drafter for every stale source and record the refreshed hashes",
		Long: `Runs the drafter command once per stale source with the source path as its
last argument. Sources whose drafter run succeeds are marked fresh in the
saved tree. Without a drafter, stale sources are listed as skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("drafter-cmd") {
				drafterCmd = a.cfg.Drafter.Command
			}
			var drafter freshness.Drafter
			if drafterCmd != "" {
				execDrafter, err := freshness.NewExecDrafter(drafterCmd, a.root)
				if err != nil {
					return err
				}
				drafter = execDrafter
			}

			report, err := freshness.RegenerateStale(cmd.Context(), a.root, drafter, a.options())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Regenerated: %d, Failed: %d, Skipped: %d\n",
				len(report.Regenerated), len(report.Failed), len(report.Skipped))
			for _, p := range report.Regenerated {
				fmt.Fprintf(a.stdout, "  regenerated %s\n", p)
			}
			for _, f := range report.Failed {
				fmt.Fprintf(a.stdout, "  failed %s: %s\n", f.Path, f.Reason)
			}
			for _, p := range report.Skipped {
				fmt.Fprintf(a.stdout, "  skipped %s\n", p)
			}
			if len(report.Failed) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&drafterCmd, "drafter-cmd", "", "Command that rewrites the doc for one source (default: config drafter.command)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the staleness check whenever sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.printCheck(ctx, nil); err != nil {
				return err
			}

			w, err := freshness.NewWatcher(a.root, a.options(), a.cfg.Debounce(), func(batch []watcher.DebouncedEvent) {
				if err := a.printCheck(ctx, batch); err != nil {
					a.logger.Error("check failed", "error", err)
				}
			})
			if err != nil {
				return err
			}
			w.Start()
			a.logger.Info("watching for changes", "root", a.root, "debounce", a.cfg.Debounce())

			<-ctx.Done()
			return w.Stop()
		},
	}
}

// printCheck prints the changed paths of batch, if any, followed by a plain
// staleness report.
func (a *app) printCheck(ctx context.Context, batch []watcher.DebouncedEvent) error {
	if len(batch) > 0 {
		fmt.Fprintf(a.stdout, "[%s] %d change(s):\n", time.Now().Format(time.TimeOnly), len(batch))
		for _, event := range batch {
			fmt.Fprintf(a.stdout, "  %s %s\n", event.Op, event.RelativePath)
		}
	}
	report, err := freshness.CheckOrInit(ctx, a.root, a.options())
	if err != nil {
		return err
	}
	fmt.Fprint(a.stdout, tools.FormatCheckPlain(report))
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register <project|user> [directory] [-- server args]",
		Short: "Add the chronicler MCP server to a Claude config file",
		Long: `project writes <directory>/.mcp.json (default: the project root).
user writes ~/.claude.json. Arguments after -- are passed to serve.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, serverArgs = args[:dash], args[dash:]
			}
			if len(positional) == 0 || len(positional) > 2 {
				return fmt.Errorf("expected <project|user> [directory], got %d argument(s)", len(positional))
			}
			scope, err := register.ParseScope(positional[0])
			if err != nil {
				return err
			}

			opts := register.Options{
				Scope:      scope,
				ServerName: name,
				ServerArgs: append([]string{"serve"}, serverArgs...),
			}
			if scope == register.ScopeProject {
				opts.Directory = a.root
				if len(positional) == 2 {
					opts.Directory = positional[1]
				}
			} else if len(positional) == 2 {
				return errors.New("user scope takes no directory")
			}

			configPath, err := register.Register(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Registered %q in %s\n", name, configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "chronicler", "Server name in the config file")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
