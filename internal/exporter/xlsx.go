// =============================================================================
// Budget Workbook Extractor - XLSX Writer
// =============================================================================
//
// The XLSX form mirrors the CSV table but keeps financial cells numeric so
// the workbook is directly usable in spreadsheet tooling. Identifier columns
// stay strings; absent financial values stay empty cells.
//
// =============================================================================

package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

const recordSheet = "Records"

// WriteXLSX writes the flattened record table as a single-sheet workbook.
func WriteXLSX(path string, records []types.FlattenedRecord, s *schema.ColumnSchema) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	columns := s.OutputColumns()
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(recordSheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header cell %s: %w", cell, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(recordSheet, "A1", last, headerStyle)
	}

	for rowIdx, rec := range records {
		for colIdx, col := range columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(recordSheet, cell, xlsxValue(rec, col)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// xlsxValue keeps numbers numeric in the workbook. Absent amounts become
// empty strings, matching the CSV rendering.
func xlsxValue(rec types.FlattenedRecord, column string) any {
	switch column {
	case "year":
		return rec.Year
	case "program_code":
		return rec.ProgramCode
	case "subprogram_code":
		return rec.SubprogramCode
	}
	if strings.HasPrefix(column, "state_body_") || strings.HasPrefix(column, "program_") || strings.HasPrefix(column, "subprogram_") {
		if v, ok := amountValue(rec, column); ok {
			return v
		}
		// identifier columns ("program_name", ...) fall through to the
		// string rendering; genuinely absent amounts stay empty
		if !isIdentifierColumn(column) {
			return ""
		}
	}
	return cellValue(rec, column)
}

func isIdentifierColumn(column string) bool {
	switch column {
	case "state_body", "program_code_ext", "program_name", "program_goal",
		"program_result_desc", "subprogram_name", "subprogram_desc", "subprogram_type":
		return true
	}
	return false
}
