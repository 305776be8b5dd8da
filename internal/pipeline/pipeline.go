// =============================================================================
// Budget Workbook Extractor - Extraction Pipeline
// =============================================================================
//
// This module orchestrates the processing of a single workbook end to end:
//
//   1. Read the first sheet into a padded grid.
//   2. Run the parser state machine to extract flattened records.
//   3. Run every applicable consistency check.
//   4. Write the record table (CSV + XLSX) and the validation report
//      (JSON + Markdown).
//   5. Persist the extraction into the SQLite sink, when configured.
//   6. Archive the source workbook on success.
//
// A fatal parse error stops the file at step 2 with nothing written. A
// failing validation report still writes every output; it only blocks the
// archival step and marks the job failed under the active strictness policy.
//
// =============================================================================

package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/armbudget/extractor/internal/config"
	"github.com/armbudget/extractor/internal/exporter"
	"github.com/armbudget/extractor/internal/parser"
	"github.com/armbudget/extractor/internal/report"
	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
	"github.com/armbudget/extractor/internal/validation"
	"github.com/armbudget/extractor/internal/xlsxreader"
	"github.com/armbudget/extractor/pkg/utils"
)

// =============================================================================
// PIPELINE
// =============================================================================

// Job identifies one workbook to process.
type Job struct {
	FilePath string
	Kind     types.SourceKind
	Year     int
}

// Result is the outcome of one job.
type Result struct {
	Job Job

	// Success is true when parsing succeeded and validation passed under
	// the active strictness policy.
	Success bool

	// Err is the fatal error that stopped the job, nil when parsing and
	// output writing succeeded (validation failures are not fatal).
	Err error

	// Records is the number of flattened records extracted.
	Records int

	// Stats carries the parser's scan statistics.
	Stats types.ScanStats

	// Report is the validation report; nil when parsing failed.
	Report *report.Report

	// OutputFiles lists every file the job wrote.
	OutputFiles []string

	// ArchivePath is where the source workbook was moved, "" when the file
	// was not archived.
	ArchivePath string

	// Duration is the wall-clock processing time.
	Duration time.Duration
}

// Pipeline processes workbooks according to one configuration. It is safe
// for concurrent Run calls: per-job state lives on the stack, and the SQLite
// handle serializes its own writers.
type Pipeline struct {
	cfg      *config.Config
	fm       *utils.FileManager
	registry *validation.Registry
	store    *exporter.Store
	log      *slog.Logger
}

// New builds a Pipeline, creating the directory layout and opening the
// SQLite sink when one is configured.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.ReportDir, cfg.ArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		fm:       fm,
		registry: validation.NewRegistry(validation.Options{Tolerances: cfg.Tolerances()}),
		log:      logger,
	}

	if cfg.DatabasePath != "" {
		store, err := exporter.OpenStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p, nil
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// =============================================================================
// JOB EXECUTION
// =============================================================================

// Run processes one workbook end to end.
func (p *Pipeline) Run(job Job) (res Result) {
	start := time.Now()
	res = Result{Job: job}
	log := p.log.With("file", job.FilePath, "kind", string(job.Kind), "year", job.Year)

	defer func() { res.Duration = time.Since(start) }()

	s, err := schema.ForKind(job.Kind)
	if err != nil {
		res.Err = err
		return res
	}

	grid, err := xlsxreader.ReadGrid(job.FilePath, s.Width)
	if err != nil {
		res.Err = err
		return res
	}
	log.Debug("workbook read", "rows", len(grid))

	parsed, err := parser.New(s, parser.Options{Year: job.Year, Logger: log}).Parse(grid)
	if err != nil {
		res.Err = fmt.Errorf("failed to parse %s: %w", job.FilePath, err)
		return res
	}
	res.Records = len(parsed.Records)
	res.Stats = parsed.Stats

	checkResults := p.registry.Run(parsed.Records, parsed.Overall, s)
	rep := report.New(job.Kind, job.FilePath, checkResults, time.Now())
	res.Report = rep

	if err := p.writeOutputs(&res, parsed, s, rep); err != nil {
		res.Err = err
		return res
	}

	if p.store != nil {
		if _, err := p.store.SaveExtraction(job.FilePath, job.Year, parsed.Records, parsed.Overall, s); err != nil {
			res.Err = err
			return res
		}
		log.Debug("extraction persisted", "database", p.cfg.DatabasePath)
	}

	if rep.Failing(p.cfg.Strict) {
		log.Warn("validation failed",
			"errors", rep.Summary.ErrorCount,
			"warnings", rep.Summary.WarningCount,
		)
		return res
	}

	archived, err := p.fm.ArchiveWorkbook(job.FilePath)
	if err != nil {
		res.Err = err
		return res
	}
	if archived != job.FilePath {
		res.ArchivePath = archived
	}

	res.Success = true
	log.Info("workbook processed",
		"records", res.Records,
		"checks", rep.Summary.Total,
		"duration", res.Duration,
	)
	return res
}

// writeOutputs writes the record table and the validation report.
func (p *Pipeline) writeOutputs(res *Result, parsed *parser.Result, s *schema.ColumnSchema, rep *report.Report) error {
	base := utils.OutputBase(string(res.Job.Kind), res.Job.Year, res.Job.FilePath)

	csvPath := p.fm.OutputPath(base, ".csv")
	if err := exporter.WriteCSV(csvPath, parsed.Records, s); err != nil {
		return err
	}
	res.OutputFiles = append(res.OutputFiles, csvPath)

	xlsxPath := p.fm.OutputPath(base, ".xlsx")
	if err := exporter.WriteXLSX(xlsxPath, parsed.Records, s); err != nil {
		return err
	}
	res.OutputFiles = append(res.OutputFiles, xlsxPath)

	totalsPath := p.fm.OutputPath(base, ".totals.json")
	if err := exporter.WriteOverallTotals(totalsPath, parsed.Overall); err != nil {
		return err
	}
	res.OutputFiles = append(res.OutputFiles, totalsPath)

	jsonBody, err := rep.JSON()
	if err != nil {
		return err
	}
	jsonPath := p.fm.ReportPath(base, ".report.json")
	if err := os.WriteFile(jsonPath, jsonBody, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", jsonPath, err)
	}
	res.OutputFiles = append(res.OutputFiles, jsonPath)

	mdPath := p.fm.ReportPath(base, ".report.md")
	if err := os.WriteFile(mdPath, []byte(rep.Markdown()), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", mdPath, err)
	}
	res.OutputFiles = append(res.OutputFiles, mdPath)

	return nil
}

// =============================================================================
// WORKBOOK DISCOVERY
// =============================================================================

// DiscoverJobs scans the input directory and assigns each workbook to the
// first kind whose configured pattern matches it. Kinds are tried in the
// canonical order so overlapping patterns resolve deterministically.
//
// year == 0 means the report year is inferred per workbook from its file
// name; a workbook carrying no year is an error.
func (p *Pipeline) DiscoverJobs(year int) ([]Job, error) {
	var jobs []Job
	seen := make(map[string]bool)

	for _, kind := range types.AllSourceKinds() {
		files, err := p.fm.DiscoverWorkbooks(p.cfg.PatternsFor(kind))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true

			fileYear := year
			if fileYear == 0 {
				inferred, ok := utils.YearFromFileName(f)
				if !ok {
					return nil, fmt.Errorf("cannot infer report year from %s; pass --year", f)
				}
				fileYear = inferred
			}
			jobs = append(jobs, Job{FilePath: f, Kind: kind, Year: fileYear})
		}
	}
	return jobs, nil
}
