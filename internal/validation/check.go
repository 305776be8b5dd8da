// =============================================================================
// Budget Workbook Extractor - Validation Framework
// =============================================================================
//
// This module defines the check contract and the closed, ordered registry
// the report is built from. Checks are independent, side-effect-free
// functions over an immutable (records, overall) snapshot: a failing check
// never aborts the run, every applicable check executes, and the aggregated
// results carry every failure message, never just the first.
//
// The check set is fixed and small, so the registry is an explicit list
// rather than a discovered plugin mechanism.
//
// =============================================================================

package validation

import (
	"fmt"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// =============================================================================
// RESULTS
// =============================================================================

// Severity classifies a check outcome.
type Severity string

const (
	// SeverityError marks failures that make the extraction unusable.
	SeverityError Severity = "error"

	// SeverityWarning marks suspicious but plausibly legitimate data.
	SeverityWarning Severity = "warning"
)

// CheckResult is the outcome of one check (or one sub-check). The invariant
// FailCount == 0 ⟺ Passed holds for every result the registry returns.
type CheckResult struct {
	CheckID   string   `json:"check_id"`
	Severity  Severity `json:"severity"`
	Passed    bool     `json:"passed"`
	FailCount int      `json:"fail_count"`
	Messages  []string `json:"messages,omitempty"`
}

// newResult starts a passing result; fail() flips it.
func newResult(id string, severity Severity) *CheckResult {
	return &CheckResult{CheckID: id, Severity: severity, Passed: true}
}

// fail records one failure message on the result.
func (r *CheckResult) fail(format string, args ...any) {
	r.Passed = false
	r.FailCount++
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// =============================================================================
// CHECK CONTRACT
// =============================================================================

// Check is one consistency check over the full record set and overall
// totals. Implementations must be pure: no retained state, no side effects.
type Check interface {
	// ID is the stable identifier used in reports.
	ID() string

	// AppliesTo reports whether the check runs for a source kind.
	AppliesTo(kind types.SourceKind) bool

	// Validate runs the check and returns one or more results. A check
	// always returns at least one result, pass or fail.
	Validate(records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) []CheckResult
}

// =============================================================================
// REGISTRY
// =============================================================================

// Options tunes the registry.
type Options struct {
	// Tolerances overrides the per-kind absolute tolerance for the
	// hierarchical totals check. Missing kinds use the schema default.
	Tolerances map[types.SourceKind]float64
}

// Registry runs every applicable check in a fixed order and concatenates
// their results.
type Registry struct {
	checks []Check
}

// NewRegistry builds the closed check list.
func NewRegistry(opts Options) *Registry {
	return &Registry{checks: []Check{
		requiredFieldsCheck{},
		emptyIdentifiersCheck{},
		missingFinancialDataCheck{},
		hierarchicalTotalsCheck{tolerances: opts.Tolerances},
		negativeTotalsCheck{},
		periodVsAnnualCheck{},
		negativePercentagesCheck{},
		executionExceeds100Check{},
		percentageCalculationCheck{},
		structureSanityCheck{},
	}}
}

// Run executes the registry against one extraction snapshot.
func (reg *Registry) Run(records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	var results []CheckResult
	for _, c := range reg.checks {
		if !c.AppliesTo(s.Kind) {
			continue
		}
		results = append(results, c.Validate(records, overall, s)...)
	}
	return results
}

// CheckIDs lists the IDs of the checks applicable to a kind, in run order.
func (reg *Registry) CheckIDs(kind types.SourceKind) []string {
	var ids []string
	for _, c := range reg.checks {
		if c.AppliesTo(kind) {
			ids = append(ids, c.ID())
		}
	}
	return ids
}

// =============================================================================
// ENTITY ITERATION HELPERS
// =============================================================================
//
// State-body and program figures are denormalized onto every subprogram
// record, so level-wise checks must walk distinct entities. First-seen order
// keeps results deterministic.

// levelEntity is one distinct state body or program with its amounts.
type levelEntity struct {
	key     string
	label   string
	amounts map[string]float64
}

func distinctStateBodies(records []types.FlattenedRecord) []levelEntity {
	var out []levelEntity
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.StateBody] {
			continue
		}
		seen[r.StateBody] = true
		out = append(out, levelEntity{
			key:     r.StateBody,
			label:   fmt.Sprintf("state body %q", r.StateBody),
			amounts: r.StateBodyAmounts,
		})
	}
	return out
}

func programKey(r types.FlattenedRecord) string {
	return fmt.Sprintf("%s\x00%s-%d", r.StateBody, r.ProgramCodeExt, r.ProgramCode)
}

func distinctPrograms(records []types.FlattenedRecord) []levelEntity {
	var out []levelEntity
	seen := make(map[string]bool)
	for _, r := range records {
		k := programKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, levelEntity{
			key:     k,
			label:   fmt.Sprintf("program %d (%s)", r.ProgramCode, r.StateBody),
			amounts: r.ProgramAmounts,
		})
	}
	return out
}

// subprogramEntities returns every record as a leaf-level entity.
func subprogramEntities(records []types.FlattenedRecord) []levelEntity {
	out := make([]levelEntity, 0, len(records))
	for _, r := range records {
		out = append(out, levelEntity{
			key:     fmt.Sprintf("%s\x00%d", programKey(r), r.SubprogramCode),
			label:   fmt.Sprintf("subprogram %d of program %d (%s)", r.SubprogramCode, r.ProgramCode, r.StateBody),
			amounts: r.SubprogramAmounts,
		})
	}
	return out
}

// levelName indexes into the three hierarchy levels for message text.
var levelNames = []string{"state_body", "program", "subprogram"}

// entitiesAtLevel returns the distinct entities of one level (0-based:
// state body, program, subprogram).
func entitiesAtLevel(records []types.FlattenedRecord, level int) []levelEntity {
	switch level {
	case 0:
		return distinctStateBodies(records)
	case 1:
		return distinctPrograms(records)
	default:
		return subprogramEntities(records)
	}
}
