// =============================================================================
// Budget Workbook Extractor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (budgetctl)
//   ├── extractCmd (budgetctl extract)
//   ├── validateCmd (budgetctl validate)
//   └── versionCmd (budgetctl version)
//
// The root command owns the global flags (--config, --verbose) and the
// logger/configuration setup shared by the subcommands.
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/armbudget/extractor/internal/config"
	"github.com/armbudget/extractor/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "budgetctl",
	Short: "Budget Workbook Extractor - Flatten Armenian state budget workbooks into validated records",

	Long: `Budget Workbook Extractor is a CLI tool that reads the spreadsheet
workbooks published with the Armenian state budget, reconstructs the
state body / program / subprogram hierarchy from their row layout, and
emits one flattened record per leaf together with a consistency
validation report.

Supported source kinds:
  budget_law        - annual budget law annex (single total column)
  spending_year     - annual spending report (plan, revised, actual, rate)
  spending_quarter  - quarterly spending report (2025 layout, dash-joined codes)
  mtef_plan         - medium-term expenditure framework plan (three forecast years)

Example Usage:
  budgetctl extract --year 2025                  # Process every workbook in the input directory
  budgetctl extract --year 2025 --file law.xlsx --kind budget_law
  budgetctl validate --file law.xlsx --kind budget_law --year 2025
  budgetctl version`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the persistent flags shared by every subcommand.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the configuration file named by --config. A missing file
// is not an error: the built-in defaults apply, so the tool runs without any
// configuration at all.
func loadConfig() (*config.Config, error) {
	if !utils.FileExists(cfgFile) {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// newLogger builds the slog logger for one command invocation. --verbose
// overrides the configured level with debug.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
