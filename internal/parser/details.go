// =============================================================================
// Budget Workbook Extractor - Detail Collector
// =============================================================================
//
// Header rows in the marker-based layouts are followed by a five-row
// descriptive block with alternating semantics:
//
//   offset 0  value line   program/subprogram name        (optional)
//   offset 1  label line   "program goal" / "description" (mandatory)
//   offset 2  value line   goal / description text        (optional)
//   offset 3  label line   "final result" / "type"        (mandatory)
//   offset 4  value line   result / type text             (optional)
//
// An empty value line only costs a warning and yields "". A label line that
// does not classify as a detail line, or does not contain its expected
// normalized substring, means the assumed layout no longer holds and the
// whole parse of the file must stop.
//
// =============================================================================

package parser

import (
	"strings"

	"github.com/armbudget/extractor/internal/classifier"
	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// DetailBlock is the result of one lookahead window.
type DetailBlock struct {
	// Lines holds the five captured cell strings in window order. Label
	// lines are captured too, for diagnostics; callers read the values at
	// offsets 0, 2 and 4.
	Lines [5]string

	// Next is the first row index after the window.
	Next int
}

// Values returns the three value-line strings (offsets 0, 2, 4).
func (b DetailBlock) Values() (string, string, string) {
	return b.Lines[0], b.Lines[2], b.Lines[4]
}

// collectDetails reads the five-row window starting at start. labels are the
// expected normalized substrings of the two mandatory label lines.
func collectDetails(grid []types.RawRow, start int, labels [2]string, s *schema.ColumnSchema, stats *types.ScanStats) (DetailBlock, error) {
	block := DetailBlock{Next: start + 5}

	for offset := 0; offset < 5; offset++ {
		idx := start + offset
		var row types.RawRow
		if idx < len(grid) {
			row = grid[idx]
		}
		text := row.Cell(s.NameCol)
		block.Lines[offset] = text

		if offset%2 == 1 {
			// Mandatory label line.
			expected := labels[offset/2]
			if idx >= len(grid) ||
				classifier.Classify(row, s) != types.RowDetailLine ||
				!containsNormalized(text, expected) {
				return block, &types.DetailLabelMismatchError{
					Row:      idx,
					Expected: expected,
					Found:    text,
				}
			}
			continue
		}

		// Optional value line.
		if text == "" || classifier.Classify(row, s) == types.RowEmpty {
			stats.Warn("row %d: empty detail value line, substituting empty string", idx+1)
			block.Lines[offset] = ""
		}
	}

	return block, nil
}

// containsNormalized tests the expected substring against the normalized
// cell text. Expected substrings are stored pre-normalized in the schema.
func containsNormalized(text, expected string) bool {
	return expected != "" && strings.Contains(schema.Normalize(text), expected)
}
