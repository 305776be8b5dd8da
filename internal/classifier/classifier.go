// =============================================================================
// Budget Workbook Extractor - Row Classifier
// =============================================================================
//
// This module turns one raw spreadsheet row into a RowType. The rules are
// predicates over column emptiness and numeric-parseability, evaluated in a
// fixed precedence order where the first match wins:
//
//   Empty > GrandTotal > SubprogramMarker > StateBodyHeader > ProgramHeader
//         > SubprogramHeader > DetailLine > Unknown
//
// The precedence is load-bearing: a row that satisfies both the DetailLine
// and Empty predicates must resolve to Empty, and a row satisfying both the
// GrandTotal and StateBodyHeader predicates must resolve to GrandTotal.
//
// Exact column positions come from the ColumnSchema, so one classifier
// serves all four report grammars.
//
// =============================================================================

package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// Classify returns the RowType of row under the given schema.
func Classify(row types.RawRow, s *schema.ColumnSchema) types.RowType {
	switch {
	case isEmptyRow(row, s.Width):
		return types.RowEmpty

	case isGrandTotalRow(row, s):
		return types.RowGrandTotal

	case isSubprogramMarkerRow(row, s):
		return types.RowSubprogramMarker

	case isStateBodyHeader(row, s):
		return types.RowStateBodyHeader

	case isProgramHeader(row, s):
		return types.RowProgramHeader

	case isSubprogramHeader(row, s):
		return types.RowSubprogramHeader

	case isDetailLine(row, s):
		return types.RowDetailLine

	default:
		return types.RowUnknown
	}
}

// =============================================================================
// ROW PREDICATES
// =============================================================================

// isEmptyRow is true when the first width cells are blank.
func isEmptyRow(row types.RawRow, width int) bool {
	for i := 0; i < width; i++ {
		if row.Cell(i) != "" {
			return false
		}
	}
	return true
}

// isGrandTotalRow tests the schema's designated marker columns for the
// "total" token.
func isGrandTotalRow(row types.RawRow, s *schema.ColumnSchema) bool {
	for _, col := range s.GrandTotalCols {
		if schema.IsGrandTotalCell(row.Cell(col)) {
			return true
		}
	}
	return false
}

// isSubprogramMarkerRow tests the leading cells for the "program activities"
// token. Layouts that recognize subprogram rows by shape have no marker rows
// and always return false here.
func isSubprogramMarkerRow(row types.RawRow, s *schema.ColumnSchema) bool {
	for i := 0; i < s.MarkerScanCols; i++ {
		if schema.IsActivitiesCell(row.Cell(i)) {
			return true
		}
	}
	return false
}

// isStateBodyHeader: every identifier column before the name blank, name
// non-blank, leading amount numeric.
func isStateBodyHeader(row types.RawRow, s *schema.ColumnSchema) bool {
	return identifierColsBlank(row, s) &&
		row.Cell(s.NameCol) != "" &&
		IsNumeric(row.Cell(s.FirstAmountCol))
}

// isProgramHeader: numeric program code, the identifier column between code
// and name (if any) blank, name non-blank, leading amount numeric.
func isProgramHeader(row types.RawRow, s *schema.ColumnSchema) bool {
	if !IsNumeric(row.Cell(s.ProgramCodeCol)) {
		return false
	}
	for i := s.ProgramCodeCol + 1; i < s.NameCol; i++ {
		if row.Cell(i) != "" {
			return false
		}
	}
	return row.Cell(s.NameCol) != "" && IsNumeric(row.Cell(s.FirstAmountCol))
}

// isSubprogramHeader is format-dependent: either a bare numeric code in the
// dedicated subprogram column, or a dash-joined compound in the shared code
// column. The 2025 layout additionally requires its in-row description and
// type columns to be non-blank.
func isSubprogramHeader(row types.RawRow, s *schema.ColumnSchema) bool {
	if s.Levels < 3 {
		return false
	}

	if s.DashCodes {
		code := row.Cell(s.ProgramCodeCol)
		if code == "" || !strings.Contains(code, "-") {
			return false
		}
		if row.Cell(s.DescCol) == "" || row.Cell(s.TypeCol) == "" {
			return false
		}
		return row.Cell(s.NameCol) != "" && IsNumeric(row.Cell(s.FirstAmountCol))
	}

	return row.Cell(s.ProgramCodeCol) == "" &&
		IsNumeric(row.Cell(s.SubprogramCodeCol)) &&
		row.Cell(s.NameCol) != "" &&
		IsNumeric(row.Cell(s.FirstAmountCol))
}

// isDetailLine: all identifier/code columns blank, free text in the name
// column, and a blank leading amount.
func isDetailLine(row types.RawRow, s *schema.ColumnSchema) bool {
	return identifierColsBlank(row, s) &&
		row.Cell(s.NameCol) != "" &&
		row.Cell(s.FirstAmountCol) == ""
}

// identifierColsBlank is true when every column before the name column is
// blank.
func identifierColsBlank(row types.RawRow, s *schema.ColumnSchema) bool {
	for i := 0; i < s.NameCol; i++ {
		if row.Cell(i) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// NUMERIC CELL PARSING
// =============================================================================

// cleanNumber strips grouping characters the ministry's workbooks carry in
// formatted amount cells.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// IsNumeric reports whether a cell parses as a float after cleaning.
func IsNumeric(cell string) bool {
	c := cleanNumber(cell)
	if c == "" {
		return false
	}
	_, err := strconv.ParseFloat(c, 64)
	return err == nil
}

// ParseAmount parses a financial cell. The second return is false when the
// cell is blank or non-numeric, which callers record as a null (absent)
// value rather than a zero.
func ParseAmount(cell string) (float64, bool) {
	c := cleanNumber(cell)
	if c == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(c, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePercent parses an execution-rate cell and scales it to a fraction.
// "-" and other non-numeric content mean "no rate reported" and map to 0.0
// rather than failing.
func ParsePercent(cell string) float64 {
	v, ok := ParseAmount(cell)
	if !ok {
		return 0
	}
	return v / 100
}

// ParseCode parses an integer identifier cell, tolerating float-formatted
// values like "1004.0" as long as they are integral.
func ParseCode(cell string) (int, error) {
	c := cleanNumber(cell)
	if c == "" {
		return 0, fmt.Errorf("empty code cell")
	}
	if n, err := strconv.Atoi(c); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(c, 64)
	if err != nil {
		return 0, fmt.Errorf("code %q is not numeric", cell)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("code %q is not an integer", cell)
	}
	return int(f), nil
}

// SplitDashCode splits a "<parent>-<code>" compound. The parent half is kept
// verbatim as the program code extension; the trailing half must parse as an
// integer.
func SplitDashCode(cell string) (ext string, code int, err error) {
	i := strings.LastIndex(cell, "-")
	if i <= 0 || i == len(cell)-1 {
		return "", 0, fmt.Errorf("code %q is not a dash-joined compound", cell)
	}
	code, err = ParseCode(cell[i+1:])
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(cell[:i]), code, nil
}
