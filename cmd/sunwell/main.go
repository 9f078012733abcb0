// Command sunwell is the CLI front-end for the sunwell execution core: run
// a goal through the single-session or multi-worker pipeline, and inspect
// or manage an in-progress multi-worker run.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sunwell/internal/config"
	"sunwell/internal/logging"
)

var (
	workspace  string
	configPath string
	verbose    bool
	logFormat  string

	cfg *config.Config
	log *logging.Logger
)

// rootCmd is the base command; sub-commands are registered in init() from
// each cmd_*.go file.
var rootCmd = &cobra.Command{
	Use:   "sunwell",
	Short: "sunwell — an adaptive, signal-driven agent execution core",
	Long: `sunwell drives a goal through signal extraction, strategy routing,
task-graph planning and execution, and memory persistence.

Logic and execution are strictly separated from the Model capability: the
core orchestrates calls, it never re-synthesizes a provider's output.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := workspace
		if ws == "" {
			var err error
			ws, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("sunwell: getwd: %w", err)
			}
		}
		abs, err := filepath.Abs(ws)
		if err != nil {
			return fmt.Errorf("sunwell: resolve workspace: %w", err)
		}
		workspace = abs

		path := configPath
		if path == "" {
			path = filepath.Join(workspace, "sunwell.yaml")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return wrapConfigError(fmt.Errorf("sunwell: load config: %w", err))
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return wrapConfigError(fmt.Errorf("sunwell: %w", err))
		}

		level := logging.Level(cfg.Logging.Level)
		log, err = logging.Init(level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return fmt.Errorf("sunwell: init logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to sunwell.yaml (default: <workspace>/sunwell.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override logging.format (text|json)")

	rootCmd.AddCommand(runCmd, workersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
