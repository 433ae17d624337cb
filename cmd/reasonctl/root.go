// Package main implements reasonctl, the thin CLI collaborator for the
// deep reasoning orchestrator (spec §6's CLI surface contract).
//
// Commands are split across files for maintainability, following the
// teacher's cmd/nerd layout:
//
//	root.go           - rootCmd, global flags, init(), main()
//	execute.go        - executeCmd, runExecute(), exit-code mapping
//	progress.go       - bubbletea live-progress model for `execute`
//	serve_metrics.go  - serveMetricsCmd, runServeMetrics()
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deepreason/internal/config"
	"deepreason/internal/logging"
)

var (
	configPath string
	workspace  string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool

	cfg    *config.V8Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reasonctl",
	Short: "reasonctl drives the deep reasoning orchestrator",
	Long: `reasonctl is the CLI front-end for the deep reasoning orchestrator.

It routes a task between the System-1 fast path and the five System-2
reasoning strategies, applies the resulting changes, and reports the
reflection judge's verdict.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		built, err := zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		logger = built

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(logging.Settings{
			Workspace:  ws,
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			logger.Warn("failed to initialize file logging", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a V8Config YAML file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "repository working directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "command timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON instead of the rendered summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	rootCmd.AddCommand(executeCmd, serveMetricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
