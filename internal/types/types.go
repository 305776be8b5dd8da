// =============================================================================
// Budget Workbook Extractor - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - schema
//   - classifier
//   - parser
//   - validation
//   - exporter
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
)

// =============================================================================
// SOURCE KINDS
// =============================================================================

// SourceKind identifies one of the supported report grammars. Each kind has
// its own column layout, marker columns and financial field set, described by
// the schema package.
type SourceKind string

const (
	// BudgetLaw is the annual budget law workbook: four columns, one amount
	// field per hierarchy level.
	BudgetLaw SourceKind = "budget_law"

	// SpendingYear is the year-end spending report: seven columns, four
	// financial fields (no period granularity).
	SpendingYear SourceKind = "spending_year"

	// SpendingQuarter is the quarterly spending report in the 2025 layout:
	// fourteen columns, seven financial fields, dash-joined subprogram codes
	// and in-row descriptive text.
	SpendingQuarter SourceKind = "spending_quarter"

	// MTEFPlan is the medium-term expenditure plan: six columns, three
	// forecast-year amounts and a two-level hierarchy (no subprograms).
	MTEFPlan SourceKind = "mtef_plan"
)

// AllSourceKinds lists every supported kind in a stable order.
func AllSourceKinds() []SourceKind {
	return []SourceKind{BudgetLaw, SpendingYear, SpendingQuarter, MTEFPlan}
}

// ParseSourceKind converts a user-supplied string into a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range AllSourceKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// =============================================================================
// ROW MODEL
// =============================================================================

// RawRow is one spreadsheet row as an ordered sequence of trimmed cell
// strings. Absent cells are represented as empty strings; the reader pads
// every row to the schema width.
type RawRow []string

// Cell returns the cell at index i, or "" when the row is shorter.
func (r RawRow) Cell(i int) string {
	if i >= 0 && i < len(r) {
		return r[i]
	}
	return ""
}

// RowType is the classification of a single raw row. It is computed by the
// classifier and never stored.
type RowType int

const (
	RowUnknown RowType = iota
	RowEmpty
	RowGrandTotal
	RowStateBodyHeader
	RowProgramHeader
	RowSubprogramMarker
	RowSubprogramHeader
	RowDetailLine
)

// String returns the snake_case name used in logs and error messages.
func (t RowType) String() string {
	switch t {
	case RowEmpty:
		return "empty"
	case RowGrandTotal:
		return "grand_total"
	case RowStateBodyHeader:
		return "state_body_header"
	case RowProgramHeader:
		return "program_header"
	case RowSubprogramMarker:
		return "subprogram_marker"
	case RowSubprogramHeader:
		return "subprogram_header"
	case RowDetailLine:
		return "detail_line"
	default:
		return "unknown"
	}
}

// ProcessingState is the parser state machine state. Exactly one machine
// instance exists per workbook scan.
type ProcessingState int

const (
	StateInit ProcessingState = iota
	StateReady
	StateStateBody
	StateProgram
	StateSubprogram
)

// String returns the state name used in logs.
func (s ProcessingState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateStateBody:
		return "state_body"
	case StateProgram:
		return "program"
	case StateSubprogram:
		return "subprogram"
	default:
		return "invalid"
	}
}

// =============================================================================
// OUTPUT RECORDS
// =============================================================================

// FlattenedRecord is one output row per subprogram (per program for the
// two-level plan kind). State-body and program figures are denormalized onto
// every record belonging to them.
//
// Amounts maps are keyed by the logical field names declared in the schema
// for the record's source kind. A missing key means the source cell was
// absent, which is distinct from an explicit zero.
type FlattenedRecord struct {
	// Year is the report year, taken from batch context (file name).
	Year int

	// StateBody is the name of the ministry/agency (top level).
	StateBody string

	// ProgramCode is the numeric program identifier.
	ProgramCode int

	// ProgramCodeExt is the leading half of a dash-joined subprogram code.
	// Populated only by the quarterly 2025 layout; empty otherwise.
	ProgramCodeExt string

	ProgramName       string
	ProgramGoal       string
	ProgramResultDesc string

	// SubprogramCode is zero for the two-level plan kind.
	SubprogramCode int
	SubprogramName string
	SubprogramDesc string
	SubprogramType string

	StateBodyAmounts  map[string]float64
	ProgramAmounts    map[string]float64
	SubprogramAmounts map[string]float64
}

// OverallTotals holds the aggregate figures from the single grand-total row.
// For the plan kind the amounts are keyed per forecast year and ForecastYears
// lists the three years covered.
type OverallTotals struct {
	Amounts       map[string]float64 `json:"amounts"`
	ForecastYears []int              `json:"forecast_years,omitempty"`
}

// =============================================================================
// SCAN DIAGNOSTICS
// =============================================================================

// ScanStats is the caller-owned diagnostics accumulator threaded through one
// workbook scan and returned alongside the record set. It replaces ambient
// counters and module-level logging state.
type ScanStats struct {
	RowsScanned        int
	RecordsEmitted     int
	StateBodies        int
	Programs           int
	SkippedSubprograms int
	IgnoredPreamble    int
	UnknownRows        int
	Warnings           []string
}

// Warn records a scan warning.
func (s *ScanStats) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// =============================================================================
// FATAL ERROR TAXONOMY
// =============================================================================

// ErrMissingGrandTotal is returned when a workbook contains no grand-total
// row. Fatal to the file, never to a batch run.
var ErrMissingGrandTotal = errors.New("workbook has no grand total row")

// DetailLabelMismatchError is returned when a mandatory detail label line
// does not contain its expected marker text. It indicates the assumed layout
// no longer holds, so the whole parse of this file is aborted.
type DetailLabelMismatchError struct {
	Row      int
	Expected string
	Found    string
}

// Error implements the error interface.
func (e *DetailLabelMismatchError) Error() string {
	return fmt.Sprintf("row %d: expected detail label containing %q, found %q",
		e.Row+1, e.Expected, e.Found)
}
