// =============================================================================
// Budget Workbook Extractor - Extract Command
// =============================================================================
//
// This file defines the 'extract' command, which runs the full extraction
// pipeline over one or many workbooks.
//
// COMMAND USAGE:
//   budgetctl extract [flags]
//
// FLAGS:
//   --year    : Report year carried onto every record (default: inferred
//               from each workbook's file name)
//   --file    : Process a single workbook instead of scanning the input dir
//   --kind    : Source kind of the workbook (required with --file)
//   --strict  : Treat validation warnings as failures
//
// PROCESSING PIPELINE (per workbook):
//   1. Read the first sheet into a grid
//   2. Reconstruct the hierarchy and emit flattened records
//   3. Run the consistency checks
//   4. Write the record table (CSV + XLSX) and the report (JSON + Markdown)
//   5. Persist into the SQLite sink, when configured
//   6. Archive the workbook on success
//
// Workbooks are processed concurrently up to max_concurrency. A failure in
// one workbook never stops the others.
//
// =============================================================================

package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/armbudget/extractor/internal/pipeline"
	"github.com/armbudget/extractor/internal/types"
	"github.com/armbudget/extractor/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// extractYear is the report year for this run.
var extractYear int

// extractFile is an explicit single workbook to process.
var extractFile string

// extractKind is the source kind name, required with --file.
var extractKind string

// extractStrict treats validation warnings as failures.
var extractStrict bool

// =============================================================================
// EXTRACT COMMAND DEFINITION
// =============================================================================

// extractCmd represents the 'extract' command.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract flattened records from budget workbooks",
	Long: `The extract command scans the input directory for workbooks, assigns each
to a source kind by its configured file patterns, and runs the extraction
pipeline over them concurrently.

With --file a single workbook is processed instead; --kind is then required
because no pattern matching takes place.

On success the flattened record table and the validation report are written
to the output and report directories and the workbook is archived. A
workbook whose validation fails keeps its outputs but is not archived, and
the command exits non-zero.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the extract command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().IntVar(
		&extractYear,
		"year",
		0,
		"Report year carried onto every record (default: inferred from each file name)",
	)

	extractCmd.Flags().StringVar(
		&extractFile,
		"file",
		"",
		"Process a single workbook instead of scanning the input directory",
	)

	extractCmd.Flags().StringVar(
		&extractKind,
		"kind",
		"",
		"Source kind of the workbook (required with --file): budget_law, spending_year, spending_quarter, mtef_plan",
	)

	extractCmd.Flags().BoolVar(
		&extractStrict,
		"strict",
		false,
		"Treat validation warnings as failures",
	)
}

// =============================================================================
// MAIN EXTRACTION FUNCTION
// =============================================================================

// runExtract orchestrates one extraction run.
func runExtract() error {
	startTime := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractStrict {
		cfg.Strict = true
	}
	logger := newLogger(cfg)

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	jobs, err := buildJobs(p)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No workbooks to process.")
		return nil
	}
	fmt.Printf("Processing %d workbook(s)...\n", len(jobs))

	results := runJobs(p, jobs, cfg.MaxConcurrency)

	// Per-file lines, then the run summary.
	succeeded := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Printf("FAIL %s: %v\n", res.Job.FilePath, res.Err)
		case res.Report != nil:
			fmt.Println(res.Report.ConsoleSummary())
		}
		if res.Success {
			succeeded++
		}
	}

	fmt.Printf("\nDone: %d/%d workbook(s) succeeded in %s\n",
		succeeded, len(results), time.Since(startTime).Round(time.Millisecond))

	if succeeded < len(results) {
		return fmt.Errorf("%d workbook(s) failed", len(results)-succeeded)
	}
	return nil
}

// buildJobs resolves the job list from the flags: either the single
// explicit workbook or everything the input directory patterns match.
func buildJobs(p *pipeline.Pipeline) ([]pipeline.Job, error) {
	if extractFile == "" {
		return p.DiscoverJobs(extractYear)
	}

	if extractKind == "" {
		return nil, fmt.Errorf("--kind is required with --file")
	}
	kind, err := types.ParseSourceKind(extractKind)
	if err != nil {
		return nil, err
	}

	year := extractYear
	if year == 0 {
		inferred, ok := utils.YearFromFileName(extractFile)
		if !ok {
			return nil, fmt.Errorf("cannot infer report year from %s; pass --year", extractFile)
		}
		year = inferred
	}
	return []pipeline.Job{{FilePath: extractFile, Kind: kind, Year: year}}, nil
}

// runJobs fans the jobs out over a bounded worker pool and collects the
// results in job order.
func runJobs(p *pipeline.Pipeline, jobs []pipeline.Job, maxConcurrency int) []pipeline.Result {
	results := make([]pipeline.Result, len(jobs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job pipeline.Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.Run(job)
		}(i, job)
	}
	wg.Wait()

	return results
}
