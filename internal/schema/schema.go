// =============================================================================
// Budget Workbook Extractor - Column Schemas
// =============================================================================
//
// This module holds the static per-source-kind layout knowledge: which
// spreadsheet columns carry identifiers, names and financial figures, which
// columns are tested for the Armenian marker tokens, which financial fields
// are percentages, and the fixed output column order for the flattened
// record table.
//
// SUPPORTED LAYOUTS:
//
//   | kind             | width | levels | grand-total marker | subprogram rows      |
//   |------------------|-------|--------|--------------------|----------------------|
//   | budget_law       | 4     | 3      | column 2           | after activities row |
//   | spending_year    | 7     | 3      | column 2           | after activities row |
//   | spending_quarter | 14    | 3      | column 0           | by shape (dash code) |
//   | mtef_plan        | 6     | 2      | columns 0-2        | none (two levels)    |
//
// The quarterly layout is the 2025 grammar: subprogram codes are dash-joined
// "<parent>-<code>" compounds and descriptive text is carried in-row, so it
// uses no activities-marker rows and no detail lookahead.
//
// =============================================================================

package schema

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/armbudget/extractor/internal/types"
)

// =============================================================================
// MARKER TOKENS
// =============================================================================

// Marker tokens are compared after Normalize: lowercase, all whitespace
// removed, trailing punctuation stripped.
const (
	// grandTotalMarker is the Armenian label for "total" on the single
	// workbook-wide aggregate row.
	grandTotalMarker = "ընդամենը"

	// activitiesMarker is the Armenian "program activities" heading that
	// precedes the subprogram block in marker-based layouts.
	activitiesMarker = "ծրագրիմիջոցառումներ"

	// labelProgramGoal and labelProgramResult are the expected substrings of
	// the two mandatory label lines in a program detail block.
	labelProgramGoal   = "ծրագրինպատակ"
	labelProgramResult = "վերջնականարդյունք"

	// labelSubprogramDesc and labelSubprogramType are the subprogram-level
	// counterparts.
	labelSubprogramDesc = "միջոցառմաննկարագր"
	labelSubprogramType = "միջոցառմանտեսակ"
)

// Normalize prepares a cell for marker comparison: lowercase, strip every
// whitespace rune, then strip trailing punctuation (Armenian full stop and
// friends included).
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), ".,:;՝՜՞։-–`")
}

// IsGrandTotalCell reports whether a cell carries the "total" marker.
func IsGrandTotalCell(cell string) bool {
	return Normalize(cell) == grandTotalMarker
}

// IsActivitiesCell reports whether a cell carries the "program activities"
// marker.
func IsActivitiesCell(cell string) bool {
	return Normalize(cell) == activitiesMarker
}

// =============================================================================
// COLUMN SCHEMA
// =============================================================================

// ColumnSchema is the static lookup table for one source kind. Instances are
// built once by ForKind and never mutated.
type ColumnSchema struct {
	Kind types.SourceKind

	// Width is the fixed logical column count; the reader pads rows to it.
	Width int

	// Levels is the hierarchy depth: 3, or 2 for the plan kind.
	Levels int

	// GrandTotalCols are the columns tested for the "total" marker.
	GrandTotalCols []int

	// MarkerScanCols is how many leading cells are tested for the activities
	// marker. Zero means the layout has no marker rows and subprogram rows
	// are recognized by shape alone.
	MarkerScanCols int

	// ProgramCodeCol carries the numeric program code. In the dash-code
	// layout it also carries the compound subprogram code.
	ProgramCodeCol int

	// SubprogramCodeCol carries the bare subprogram code; -1 when the layout
	// has no dedicated subprogram code column.
	SubprogramCodeCol int

	// NameCol is the free-text name column.
	NameCol int

	// DescCol and TypeCol are the in-row description/type columns of the
	// 2025 layout; -1 elsewhere.
	DescCol int
	TypeCol int

	// FirstAmountCol is the leading financial column, used by the
	// numeric-trailing-amount predicates.
	FirstAmountCol int

	// InRowDetails is true when names/descriptions live on the header row
	// itself instead of a multi-row detail block.
	InRowDetails bool

	// DashCodes is true when subprogram codes are "<parent>-<code>"
	// compounds.
	DashCodes bool

	// FieldOrder lists the logical financial field names in column order.
	// Fields and PercentFields are keyed by these names. The same field set
	// applies at every hierarchy level (denormalized output).
	FieldOrder    []string
	Fields        map[string]int
	PercentFields map[string]bool

	// ProgramLabels and SubprogramLabels are the expected substrings of the
	// mandatory detail label lines, in window order.
	ProgramLabels    [2]string
	SubprogramLabels [2]string

	// Tolerance is the default absolute tolerance for cross-level total
	// checks.
	Tolerance float64
}

// ForKind returns the schema for a source kind.
func ForKind(kind types.SourceKind) (*ColumnSchema, error) {
	switch kind {
	case types.BudgetLaw:
		return budgetLawSchema(), nil
	case types.SpendingYear:
		return spendingYearSchema(), nil
	case types.SpendingQuarter:
		return spendingQuarterSchema(), nil
	case types.MTEFPlan:
		return mtefPlanSchema(), nil
	default:
		return nil, fmt.Errorf("no column schema for source kind %q", kind)
	}
}

// MustForKind is ForKind for static kinds; it panics on an unknown kind.
func MustForKind(kind types.SourceKind) *ColumnSchema {
	s, err := ForKind(kind)
	if err != nil {
		panic(err)
	}
	return s
}

func budgetLawSchema() *ColumnSchema {
	return &ColumnSchema{
		Kind:              types.BudgetLaw,
		Width:             4,
		Levels:            3,
		GrandTotalCols:    []int{2},
		MarkerScanCols:    3,
		ProgramCodeCol:    0,
		SubprogramCodeCol: 1,
		NameCol:           2,
		DescCol:           -1,
		TypeCol:           -1,
		FirstAmountCol:    3,
		FieldOrder:        []string{"total"},
		Fields:            map[string]int{"total": 3},
		PercentFields:     map[string]bool{},
		ProgramLabels:     [2]string{labelProgramGoal, labelProgramResult},
		SubprogramLabels:  [2]string{labelSubprogramDesc, labelSubprogramType},
		Tolerance:         1.0,
	}
}

func spendingYearSchema() *ColumnSchema {
	return &ColumnSchema{
		Kind:              types.SpendingYear,
		Width:             7,
		Levels:            3,
		GrandTotalCols:    []int{2},
		MarkerScanCols:    3,
		ProgramCodeCol:    0,
		SubprogramCodeCol: 1,
		NameCol:           2,
		DescCol:           -1,
		TypeCol:           -1,
		FirstAmountCol:    3,
		FieldOrder:        []string{"annual", "annual_revised", "actual", "pct"},
		Fields: map[string]int{
			"annual":         3,
			"annual_revised": 4,
			"actual":         5,
			"pct":            6,
		},
		PercentFields:    map[string]bool{"pct": true},
		ProgramLabels:    [2]string{labelProgramGoal, labelProgramResult},
		SubprogramLabels: [2]string{labelSubprogramDesc, labelSubprogramType},
		Tolerance:        5.0,
	}
}

func spendingQuarterSchema() *ColumnSchema {
	return &ColumnSchema{
		Kind:              types.SpendingQuarter,
		Width:             14,
		Levels:            3,
		GrandTotalCols:    []int{0},
		MarkerScanCols:    0,
		ProgramCodeCol:    0,
		SubprogramCodeCol: -1,
		NameCol:           1,
		DescCol:           2,
		TypeCol:           3,
		FirstAmountCol:    4,
		InRowDetails:      true,
		DashCodes:         true,
		FieldOrder: []string{
			"annual", "annual_revised", "period", "period_revised",
			"actual", "pct_annual", "pct_period",
		},
		Fields: map[string]int{
			"annual":         4,
			"annual_revised": 5,
			"period":         6,
			"period_revised": 7,
			"actual":         8,
			"pct_annual":     9,
			"pct_period":     10,
		},
		PercentFields: map[string]bool{"pct_annual": true, "pct_period": true},
		Tolerance:     5.0,
	}
}

func mtefPlanSchema() *ColumnSchema {
	return &ColumnSchema{
		Kind:              types.MTEFPlan,
		Width:             6,
		Levels:            2,
		GrandTotalCols:    []int{0, 1, 2},
		MarkerScanCols:    0,
		ProgramCodeCol:    0,
		SubprogramCodeCol: -1,
		NameCol:           2,
		DescCol:           -1,
		TypeCol:           -1,
		FirstAmountCol:    3,
		FieldOrder:        []string{"year1", "year2", "year3"},
		Fields: map[string]int{
			"year1": 3,
			"year2": 4,
			"year3": 5,
		},
		PercentFields: map[string]bool{},
		ProgramLabels: [2]string{labelProgramGoal, labelProgramResult},
		Tolerance:     0.5,
	}
}

// =============================================================================
// DERIVED FIELD SETS
// =============================================================================

// AmountFields returns the non-percentage field names in column order. These
// are the fields the cross-level total checks sum.
func (s *ColumnSchema) AmountFields() []string {
	out := make([]string, 0, len(s.FieldOrder))
	for _, f := range s.FieldOrder {
		if !s.PercentFields[f] {
			out = append(out, f)
		}
	}
	return out
}

// PercentFieldNames returns the percentage field names in column order.
func (s *ColumnSchema) PercentFieldNames() []string {
	out := make([]string, 0, len(s.PercentFields))
	for _, f := range s.FieldOrder {
		if s.PercentFields[f] {
			out = append(out, f)
		}
	}
	return out
}

// RateDenominator returns the revised-plan field a reported execution rate
// must be checked against, or "" for non-percentage fields.
func (s *ColumnSchema) RateDenominator(field string) string {
	switch field {
	case "pct", "pct_annual":
		return "annual_revised"
	case "pct_period":
		return "period_revised"
	default:
		return ""
	}
}

// UsesActivityMarker reports whether the layout announces subprogram blocks
// with a dedicated marker row.
func (s *ColumnSchema) UsesActivityMarker() bool {
	return s.MarkerScanCols > 0
}

// =============================================================================
// OUTPUT COLUMN ORDER
// =============================================================================

// OutputColumns returns the fixed output column order for the flattened
// record table of this kind.
//
//   - budget_law: 13 columns (year + 9 identifiers + total at 3 levels)
//   - spending kinds: 10 identifiers + one column per field per level
//   - mtef_plan: 5 identifiers + 3 forecast amounts at 2 levels
func (s *ColumnSchema) OutputColumns() []string {
	switch s.Kind {
	case types.MTEFPlan:
		cols := []string{
			"state_body", "program_code", "program_name",
			"program_goal", "program_result_desc",
		}
		for _, f := range s.FieldOrder {
			cols = append(cols, "state_body_"+f)
		}
		for _, f := range s.FieldOrder {
			cols = append(cols, "program_"+f)
		}
		return cols

	case types.BudgetLaw:
		return []string{
			"year", "state_body", "program_code", "program_name",
			"program_goal", "program_result_desc",
			"subprogram_code", "subprogram_name", "subprogram_desc",
			"subprogram_type",
			"state_body_total", "program_total", "subprogram_total",
		}

	default: // spending kinds
		cols := []string{
			"state_body", "program_code", "program_code_ext", "program_name",
			"program_goal", "program_result_desc",
			"subprogram_code", "subprogram_name", "subprogram_desc",
			"subprogram_type",
		}
		for _, f := range s.FieldOrder {
			cols = append(cols, "state_body_"+f)
		}
		for _, f := range s.FieldOrder {
			cols = append(cols, "program_"+f)
		}
		for _, f := range s.FieldOrder {
			cols = append(cols, "subprogram_"+f)
		}
		return cols
	}
}
