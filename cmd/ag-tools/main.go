package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ag-tools/internal/config"
	"ag-tools/internal/events"
	"ag-tools/internal/render"
	"ag-tools/internal/store"
	"ag-tools/internal/tools"
	"ag-tools/internal/version"
	"ag-tools/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errToolFailed signals a failed tool call (error, timeout or nonzero exit).
// The text has already been printed, so main only sets the exit code.
var errToolFailed = errors.New("tool call failed")

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errToolFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ag-tools",
		Short:         "ag-tools - sandboxed exec and web tools for agents",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file (default: $XDG_CONFIG_HOME/ag-tools/config.yaml)")
	cmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging and tool previews")
	cmd.PersistentFlags().Bool("quiet", false, "Hide tool call summaries")
	cmd.PersistentFlags().Bool("json", false, "Output JSON only (with --verbose, tool events go to stderr as JSON lines)")

	cmd.AddCommand(
		newExecCmd(),
		newSearchCmd(),
		newFetchCmd(),
		newCallCmd(),
		newToolsCmd(),
		newHistoryCmd(),
	)
	return cmd
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *tools.Registry
	store    *store.Store
	renderer render.Renderer
	json     bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	logger := buildLogger(verbose)
	if cfg.File != "" {
		logger.Debug("loaded config", zap.String("file", cfg.File))
	}

	a := &app{cfg: cfg, logger: logger, json: jsonOutput}
	a.registry = tools.NewRegistry(
		tools.NewExecTool(execOptions(cfg.Tools.Exec, logger)),
		tools.NewWebSearchTool(searchOptions(cfg.Tools.Web.Search, logger)),
		tools.NewWebFetchTool(tools.WebFetchOptions{
			MaxChars: cfg.Tools.Web.Fetch.MaxChars,
			Timeout:  time.Duration(cfg.Tools.Web.Fetch.Timeout) * time.Second,
			Logger:   logger,
		}),
	)

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, logger)
		if err != nil {
			logger.Warn("call history disabled", zap.Error(err))
		} else {
			a.store = st
		}
	}

	switch {
	case jsonOutput && verbose:
		a.renderer = render.NewJSONRenderer(os.Stderr)
	case jsonOutput:
		a.renderer = render.NewStdoutRenderer(os.Stderr, false, true)
	default:
		a.renderer = render.NewStdoutRenderer(os.Stderr, verbose, quiet)
	}
	var observe events.Emitter
	if a.store != nil {
		observe = a.store.Observe
	}
	a.registry.SetEmitter(render.Fanout(a.renderer.Emit, observe))
	return a, nil
}

func (a *app) Close() {
	_ = a.renderer.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close call history", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func execOptions(cfg config.ExecConfig, logger *zap.Logger) tools.ExecOptions {
	workingDir := cfg.WorkingDir
	if workingDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			root, err := workspace.FindRoot(cwd)
			if err != nil {
				logger.Warn("failed to find workspace root", zap.Error(err))
				root = cwd
			}
			workingDir = root
		}
	}
	return tools.ExecOptions{
		Timeout:             cfg.Timeout,
		EnvStrip:            cfg.EnvStrip,
		MaxOutputChars:      cfg.MaxOutputChars,
		WorkingDir:          workingDir,
		DenyPatterns:        cfg.DenyPatterns,
		AllowPatterns:       cfg.AllowPatterns,
		RestrictToWorkspace: cfg.RestrictToWorkspace,
		Shell:               cfg.Shell,
		Logger:              logger,
	}
}

func searchOptions(cfg config.SearchConfig, logger *zap.Logger) tools.WebSearchOptions {
	return tools.WebSearchOptions{
		APIKey:            cfg.APIKey,
		Provider:          cfg.Provider,
		MaxResults:        cfg.MaxResults,
		Timeout:           time.Duration(cfg.Timeout) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
