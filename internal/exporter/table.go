// =============================================================================
// Budget Workbook Extractor - Record Table Layout
// =============================================================================
//
// Shared cell rendering for the CSV and XLSX writers. The column order is
// fixed per source kind by the schema; this file maps a column name to the
// corresponding record value. Absent financial values render as empty cells,
// never as zero.
//
// =============================================================================

package exporter

import (
	"strconv"
	"strings"

	"github.com/armbudget/extractor/internal/types"
)

// cellValue renders one output column of one record as a string.
func cellValue(rec types.FlattenedRecord, column string) string {
	switch column {
	case "year":
		return strconv.Itoa(rec.Year)
	case "state_body":
		return rec.StateBody
	case "program_code":
		return strconv.Itoa(rec.ProgramCode)
	case "program_code_ext":
		return rec.ProgramCodeExt
	case "program_name":
		return rec.ProgramName
	case "program_goal":
		return rec.ProgramGoal
	case "program_result_desc":
		return rec.ProgramResultDesc
	case "subprogram_code":
		return strconv.Itoa(rec.SubprogramCode)
	case "subprogram_name":
		return rec.SubprogramName
	case "subprogram_desc":
		return rec.SubprogramDesc
	case "subprogram_type":
		return rec.SubprogramType
	}

	if v, ok := amountValue(rec, column); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// amountValue resolves a prefixed financial column ("state_body_annual",
// "program_total", ...) against the record's amount maps. The second return
// is false for absent (null) values.
func amountValue(rec types.FlattenedRecord, column string) (float64, bool) {
	switch {
	case strings.HasPrefix(column, "state_body_"):
		v, ok := rec.StateBodyAmounts[strings.TrimPrefix(column, "state_body_")]
		return v, ok
	case strings.HasPrefix(column, "subprogram_"):
		v, ok := rec.SubprogramAmounts[strings.TrimPrefix(column, "subprogram_")]
		return v, ok
	case strings.HasPrefix(column, "program_"):
		v, ok := rec.ProgramAmounts[strings.TrimPrefix(column, "program_")]
		return v, ok
	default:
		return 0, false
	}
}
