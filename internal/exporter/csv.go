// =============================================================================
// Budget Workbook Extractor - CSV Writer
// =============================================================================

package exporter

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// WriteCSV writes the flattened record table to path with the schema's
// column order. The header row is always written, even for zero records.
func WriteCSV(path string, records []types.FlattenedRecord, s *schema.ColumnSchema) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := s.OutputColumns()
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = cellValue(rec, col)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return nil
}
