// =============================================================================
// Budget Workbook Extractor - Workbook Reader
// =============================================================================
//
// This module reads a budget workbook into a rectangular grid of trimmed
// cell strings. Only the first sheet is read, there is no header row, and
// every cell is coerced to a string with "" for empty cells, which is the
// only representation the row classifier understands.
//
// Reading the whole sheet into memory is deliberate: the parser state
// machine needs ordered rows with bounded lookahead, so streaming buys
// nothing here.
//
// =============================================================================

package xlsxreader

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/armbudget/extractor/internal/types"
)

// ReadGrid reads the first sheet of the workbook at path and returns its
// rows, each padded to at least width cells.
func ReadGrid(path string, width int) ([]types.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", sheetName, err)
	}

	return GridFromRows(rows, width), nil
}

// GridFromRows converts raw sheet rows into the padded, trimmed grid the
// parser consumes. It is exposed separately so tests and callers holding
// already-decoded rows can share the exact coercion rules.
func GridFromRows(rows [][]string, width int) []types.RawRow {
	grid := make([]types.RawRow, len(rows))
	for i, row := range rows {
		n := len(row)
		if n < width {
			n = width
		}
		cells := make(types.RawRow, n)
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		grid[i] = cells
	}
	return grid
}
