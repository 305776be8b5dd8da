// =============================================================================
// Budget Workbook Extractor - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which parses a single workbook
// and runs the consistency checks without writing any record tables. The
// report is printed to stdout instead of the report directory, so the
// command is useful for inspecting a workbook before a full extraction run.
//
// COMMAND USAGE:
//   budgetctl validate --file <workbook> --kind <kind> --year <year> [--json]
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/armbudget/extractor/internal/parser"
	"github.com/armbudget/extractor/internal/report"
	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
	"github.com/armbudget/extractor/internal/validation"
	"github.com/armbudget/extractor/internal/xlsxreader"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// validateFile is the workbook to validate.
var validateFile string

// validateKind is the source kind name of the workbook.
var validateKind string

// validateYear is the report year.
var validateYear int

// validateJSON switches the output from Markdown to JSON.
var validateJSON bool

// validateStrict treats warnings as failures.
var validateStrict bool

// =============================================================================
// VALIDATE COMMAND DEFINITION
// =============================================================================

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse one workbook and print its validation report",
	Long: `The validate command runs the parser and the full consistency check set
over a single workbook, printing the resulting report to stdout. No record
tables are written and the workbook is never archived.

The command exits non-zero when the report contains errors, or, with
--strict, when it contains warnings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the validate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFile, "file", "", "Workbook to validate (required)")
	validateCmd.MarkFlagRequired("file")

	validateCmd.Flags().StringVar(
		&validateKind,
		"kind",
		"",
		"Source kind: budget_law, spending_year, spending_quarter, mtef_plan (required)",
	)
	validateCmd.MarkFlagRequired("kind")

	validateCmd.Flags().IntVar(&validateYear, "year", 0, "Report year (required)")
	validateCmd.MarkFlagRequired("year")

	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the report as JSON instead of Markdown")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat validation warnings as failures")
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// runValidate parses the workbook, runs the checks and prints the report.
func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	kind, err := types.ParseSourceKind(validateKind)
	if err != nil {
		return err
	}
	s, err := schema.ForKind(kind)
	if err != nil {
		return err
	}

	grid, err := xlsxreader.ReadGrid(validateFile, s.Width)
	if err != nil {
		return err
	}

	parsed, err := parser.New(s, parser.Options{Year: validateYear, Logger: logger}).Parse(grid)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", validateFile, err)
	}

	registry := validation.NewRegistry(validation.Options{Tolerances: cfg.Tolerances()})
	results := registry.Run(parsed.Records, parsed.Overall, s)
	rep := report.New(kind, validateFile, results, time.Now())

	if validateJSON {
		body, err := rep.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(body))
	} else {
		fmt.Print(rep.Markdown())
	}

	if rep.Failing(validateStrict || cfg.Strict) {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)",
			rep.Summary.ErrorCount, rep.Summary.WarningCount)
	}
	return nil
}
