// =============================================================================
// Budget Workbook Extractor - Overall Totals Export
// =============================================================================

package exporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/armbudget/extractor/internal/types"
)

// WriteOverallTotals writes the grand-total figures as a small JSON document
// next to the record table.
func WriteOverallTotals(path string, overall *types.OverallTotals) error {
	if overall == nil {
		return fmt.Errorf("no overall totals to write")
	}
	body, err := json.MarshalIndent(overall, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode overall totals: %w", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("failed to write overall totals %s: %w", path, err)
	}
	return nil
}
