// =============================================================================
// Budget Workbook Extractor - Validation Report
// =============================================================================
//
// This module aggregates check results into an immutable report with three
// renderings:
//   - machine-readable JSON for downstream tooling
//   - Markdown for human review
//   - a terse one-line console summary for batch output
//
// A report is built once per (records, overall) snapshot and never mutated
// afterward. Bucket membership is decided purely by (passed, severity), so
// result ordering from the registry is preserved inside each bucket.
//
// =============================================================================

package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/armbudget/extractor/internal/types"
	"github.com/armbudget/extractor/internal/validation"
)

// =============================================================================
// REPORT STRUCTURE
// =============================================================================

// Metadata identifies the validated input.
type Metadata struct {
	SourceType  string    `json:"source_type"`
	SourceFile  string    `json:"source_file"`
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summary carries the pass/fail/severity counts.
type Summary struct {
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	WithWarnings int `json:"with_warnings"`
	WithErrors   int `json:"with_errors"`
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
}

// Report is the aggregated validation outcome.
type Report struct {
	Metadata      Metadata                 `json:"metadata"`
	Summary       Summary                  `json:"summary"`
	PassedChecks  []validation.CheckResult `json:"passed_checks"`
	WarningChecks []validation.CheckResult `json:"warning_checks"`
	ErrorChecks   []validation.CheckResult `json:"error_checks"`
}

// New builds a report from registry output. now is injected so renderings
// are reproducible in tests; pass time.Now() in production code.
func New(kind types.SourceKind, sourceFile string, results []validation.CheckResult, now time.Time) *Report {
	r := &Report{
		Metadata: Metadata{
			SourceType:  string(kind),
			SourceFile:  sourceFile,
			ReportID:    uuid.NewString(),
			GeneratedAt: now.UTC(),
		},
		PassedChecks:  []validation.CheckResult{},
		WarningChecks: []validation.CheckResult{},
		ErrorChecks:   []validation.CheckResult{},
	}

	for _, res := range results {
		r.Summary.Total++
		switch {
		case res.Passed:
			r.Summary.Passed++
			r.PassedChecks = append(r.PassedChecks, res)
		case res.Severity == validation.SeverityWarning:
			r.Summary.WithWarnings++
			r.Summary.WarningCount += res.FailCount
			r.WarningChecks = append(r.WarningChecks, res)
		default:
			r.Summary.WithErrors++
			r.Summary.ErrorCount += res.FailCount
			r.ErrorChecks = append(r.ErrorChecks, res)
		}
	}
	return r
}

// Failing reports whether the outcome counts as a failure under the given
// policy. Strict mode also treats warnings as failing.
func (r *Report) Failing(strict bool) bool {
	if r.Summary.WithErrors > 0 {
		return true
	}
	return strict && r.Summary.WithWarnings > 0
}

// =============================================================================
// RENDERINGS
// =============================================================================

// JSON renders the machine-readable report.
func (r *Report) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return out, nil
}

// Markdown renders the human-readable report with the same structure as the
// JSON form.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report\n\n")
	fmt.Fprintf(&b, "- **Source type:** %s\n", r.Metadata.SourceType)
	fmt.Fprintf(&b, "- **Source file:** %s\n", r.Metadata.SourceFile)
	fmt.Fprintf(&b, "- **Report ID:** %s\n", r.Metadata.ReportID)
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", r.Metadata.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Checks | Passed | With warnings | With errors | Warnings | Errors |\n")
	fmt.Fprintf(&b, "|-------:|-------:|--------------:|------------:|---------:|-------:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d |\n\n",
		r.Summary.Total, r.Summary.Passed, r.Summary.WithWarnings,
		r.Summary.WithErrors, r.Summary.WarningCount, r.Summary.ErrorCount)

	writeBucket(&b, "Errors", r.ErrorChecks)
	writeBucket(&b, "Warnings", r.WarningChecks)
	writeBucket(&b, "Passed", r.PassedChecks)

	return b.String()
}

func writeBucket(b *strings.Builder, title string, results []validation.CheckResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, res := range results {
		if res.Passed {
			fmt.Fprintf(b, "- `%s` ✓\n", res.CheckID)
			continue
		}
		fmt.Fprintf(b, "- `%s` (%s, %d failure(s))\n", res.CheckID, res.Severity, res.FailCount)
		for _, msg := range res.Messages {
			fmt.Fprintf(b, "  - %s\n", msg)
		}
	}
	fmt.Fprintln(b)
}

// ConsoleSummary renders the terse one-line form used by batch output.
func (r *Report) ConsoleSummary() string {
	status := "OK"
	switch {
	case r.Summary.WithErrors > 0:
		status = "FAIL"
	case r.Summary.WithWarnings > 0:
		status = "WARN"
	}
	return fmt.Sprintf("%s %s: %d/%d checks passed, %d error(s), %d warning(s)",
		status, r.Metadata.SourceFile,
		r.Summary.Passed, r.Summary.Total,
		r.Summary.ErrorCount, r.Summary.WarningCount)
}
