package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shihwesley/chronicler/config"
	"github.com/shihwesley/chronicler/freshness"
	"github.com/shihwesley/chronicler/merkle"
	"github.com/shihwesley/chronicler/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries a process exit code out of a command. A nil err means
// the command already reported what went wrong.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exit.err)
		}
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// app holds the state shared by every subcommand once the persistent flags
// and the project config are resolved.
type app struct {
	stdout io.Writer
	stderr io.Writer

	rootFlag string
	logLevel string
	logFile  string

	root   string
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "chronicler",
		Short: "Track drift between technical docs and the source they describe",
		Long: `chronicler fingerprints every source file and its paired .tech.md doc in a
merkle tree, and reports which docs went stale, which sources have no doc,
and which components a change can reach.

Settings are read from chronicler.yaml at the project root when present.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.rootFlag, "root", "", "Project root directory (default: current working directory)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (default: config log_level)")
	flags.StringVar(&a.logFile, "log-file", "", "Log file path (default: stderr)")

	rootCmd.AddCommand(
		newScanCmd(a),
		newCheckCmd(a),
		newStatusCmd(a),
		newBlastRadiusCmd(a),
		newRegenerateCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newRegisterCmd(a),
	)
	return rootCmd
}

// load resolves the project root, loads its config and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	root := a.rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}
	resolved, err := merkle.ResolveRoot(root)
	if err != nil {
		return err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	a.root = resolved
	a.cfg = cfg
	a.logger = setupLogger(cfg.LogLevel, a.logFile, a.stderr)
	a.logger.Debug("config loaded", "root", resolved, "command", cmd.Name())
	return nil
}

func (a *app) options() freshness.Options {
	return a.cfg.Freshness(a.logger)
}

// setupLogger creates an slog.Logger writing to a file or to fallback. The
// MCP server owns stdout, so logs never go there.
func setupLogger(level string, logFile string, fallback io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writer := fallback
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(fallback, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
