// =============================================================================
// Budget Workbook Extractor - Parser State Machine
// =============================================================================
//
// This module drives a single forward scan over all workbook rows, consuming
// classifier output, threading one mutable hierarchy context, invoking the
// detail collector at header rows, and emitting flattened records.
//
// STATES AND TRANSITIONS:
//
//   init ──grand_total──▶ ready
//   ready/…  ──state_body_header──▶ state_body
//   ready/…  ──program_header─────▶ program
//   …        ──subprogram_marker──▶ subprogram   (marker layouts)
//   program  ──subprogram_header──▶ subprogram   (shape-detected layouts)
//
// The last transition exists only for the shape-detected layouts, whose
// grammars carry no activities marker: there the subprogram header row itself
// has to advance the state. In the marker layouts a subprogram header never
// changes the state.
//
// Data extraction happens only on designated (state, row type) pairs. Rows
// that look like hierarchy headers before the grand-total row has been seen
// are counted and ignored; if the grand total never appears the scan fails
// with ErrMissingGrandTotal. A mandatory detail label mismatch is fatal to
// the file. A malformed subprogram code skips that single row.
//
// The machine owns its HierarchyContext for exactly one scan and shares
// nothing across files, so distinct workbooks can be parsed concurrently by
// independent Parser instances.
//
// =============================================================================

package parser

import (
	"io"
	"log/slog"
	"math"

	"github.com/armbudget/extractor/internal/classifier"
	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// =============================================================================
// PARSER
// =============================================================================

// Options configures one Parser.
type Options struct {
	// Year is the report year, carried onto every record and used to derive
	// the plan kind's forecast years.
	Year int

	// Logger receives scan diagnostics. Nil means discard.
	Logger *slog.Logger
}

// Parser extracts the hierarchy from one workbook grid. A Parser is cheap
// and single-use per scan; its hierarchy context never crosses scans.
type Parser struct {
	schema *schema.ColumnSchema
	year   int
	log    *slog.Logger
}

// Result is the outcome of one successful scan.
type Result struct {
	Records []types.FlattenedRecord
	Overall *types.OverallTotals
	Stats   types.ScanStats
}

// New creates a Parser for the given schema.
func New(s *schema.ColumnSchema, opts Options) *Parser {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Parser{schema: s, year: opts.Year, log: log}
}

// hierarchyContext is the mutable accumulator owned by the machine for the
// duration of one scan. The program sub-context is reset at every state-body
// header; the whole context is reset at scan start.
type hierarchyContext struct {
	stateBodyName    string
	stateBodyAmounts map[string]float64

	hasProgram        bool
	programCode       int
	programCodeExt    string
	programName       string
	programGoal       string
	programResultDesc string
	programAmounts    map[string]float64
}

func (c *hierarchyContext) resetProgram() {
	c.hasProgram = false
	c.programCode = 0
	c.programCodeExt = ""
	c.programName = ""
	c.programGoal = ""
	c.programResultDesc = ""
	c.programAmounts = nil
}

// =============================================================================
// SCAN LOOP
// =============================================================================

// Parse scans the grid and returns the flattened records, overall totals and
// scan statistics. Fatal errors (missing grand total, detail label mismatch)
// abort the scan with zero records; row-local problems are recorded in the
// stats and skipped.
func (p *Parser) Parse(grid []types.RawRow) (*Result, error) {
	res := &Result{}
	state := types.StateInit
	ctx := &hierarchyContext{}

	i := 0
	for i < len(grid) {
		row := grid[i]
		rowType := classifier.Classify(row, p.schema)
		res.Stats.RowsScanned++

		// The parser must reach ready before any hierarchy row is accepted.
		if state == types.StateInit && rowType != types.RowGrandTotal {
			if rowType != types.RowEmpty && rowType != types.RowUnknown {
				res.Stats.IgnoredPreamble++
			}
			i++
			continue
		}

		switch rowType {
		case types.RowGrandTotal:
			if state != types.StateInit {
				res.Stats.Warn("row %d: duplicate grand total row ignored", i+1)
				i++
				continue
			}
			res.Overall = p.extractOverall(row)
			state = types.StateReady
			p.log.Debug("grand total captured", "row", i+1)
			i++

		case types.RowStateBodyHeader:
			p.captureStateBody(row, ctx, &res.Stats)
			state = types.StateStateBody
			i++

		case types.RowProgramHeader:
			next, transitioned, err := p.captureProgram(grid, i, ctx, res)
			if err != nil {
				return nil, err
			}
			if transitioned {
				state = types.StateProgram
			}
			i = next

		case types.RowSubprogramMarker:
			state = types.StateSubprogram
			i++

		case types.RowSubprogramHeader:
			if !p.subprogramAccepted(state) {
				res.Stats.Warn("row %d: subprogram header outside subprogram block ignored", i+1)
				i++
				continue
			}
			next, err := p.captureSubprogram(grid, i, ctx, res)
			if err != nil {
				return nil, err
			}
			if !p.schema.UsesActivityMarker() {
				state = types.StateSubprogram
			}
			i = next

		case types.RowUnknown:
			res.Stats.UnknownRows++
			i++

		default: // empty and detail lines between blocks carry no data
			i++
		}
	}

	if state == types.StateInit {
		return nil, types.ErrMissingGrandTotal
	}

	p.log.Info("scan complete",
		"rows", res.Stats.RowsScanned,
		"records", res.Stats.RecordsEmitted,
		"state_bodies", res.Stats.StateBodies,
		"programs", res.Stats.Programs,
		"skipped_subprograms", res.Stats.SkippedSubprograms,
	)
	return res, nil
}

// subprogramAccepted reports whether a subprogram header row may be consumed
// in the current state. Marker layouts require the explicit activities block;
// shape-detected layouts accept subprograms directly under a program.
func (p *Parser) subprogramAccepted(state types.ProcessingState) bool {
	if p.schema.UsesActivityMarker() {
		return state == types.StateSubprogram
	}
	return state == types.StateProgram || state == types.StateSubprogram
}

// =============================================================================
// EXTRACTION AT DESIGNATED PAIRS
// =============================================================================

// captureStateBody captures the name and state-body financial fields, and
// resets the program sub-context.
func (p *Parser) captureStateBody(row types.RawRow, ctx *hierarchyContext, stats *types.ScanStats) {
	ctx.stateBodyName = row.Cell(p.schema.NameCol)
	ctx.stateBodyAmounts = p.extractAmounts(row)
	ctx.resetProgram()
	stats.StateBodies++
	p.log.Debug("state body", "name", ctx.stateBodyName)
}

// captureProgram captures the program code and financial fields and gathers
// the descriptive text, either in-row or through the detail collector. For
// the two-level plan kind the program itself is the leaf and a record is
// emitted immediately.
//
// The returned next index points past any consumed detail window. The
// transitioned flag is false when the row had to be skipped.
func (p *Parser) captureProgram(grid []types.RawRow, i int, ctx *hierarchyContext, res *Result) (int, bool, error) {
	row := grid[i]

	code, err := classifier.ParseCode(row.Cell(p.schema.ProgramCodeCol))
	if err != nil {
		res.Stats.Warn("row %d: unparseable program code: %v", i+1, err)
		return i + 1, false, nil
	}

	ctx.resetProgram()
	ctx.hasProgram = true
	ctx.programCode = code
	ctx.programAmounts = p.extractAmounts(row)

	next := i + 1
	if p.schema.InRowDetails {
		ctx.programName = row.Cell(p.schema.NameCol)
		ctx.programGoal = row.Cell(p.schema.DescCol)
		ctx.programResultDesc = row.Cell(p.schema.TypeCol)
	} else {
		block, err := collectDetails(grid, i+1, p.schema.ProgramLabels, p.schema, &res.Stats)
		if err != nil {
			return 0, false, err
		}
		ctx.programName, ctx.programGoal, ctx.programResultDesc = block.Values()
		next = block.Next
	}

	res.Stats.Programs++
	p.log.Debug("program", "code", ctx.programCode, "name", ctx.programName)

	if p.schema.Levels == 2 {
		res.Records = append(res.Records, buildPlanRecord(p.year, ctx))
		res.Stats.RecordsEmitted++
	}
	return next, true, nil
}

// captureSubprogram parses the subprogram code, captures its financial
// fields and descriptive text, and emits one flattened record. A malformed
// code skips this row only.
func (p *Parser) captureSubprogram(grid []types.RawRow, i int, ctx *hierarchyContext, res *Result) (int, error) {
	row := grid[i]

	var (
		code int
		ext  string
		err  error
	)
	if p.schema.DashCodes {
		ext, code, err = classifier.SplitDashCode(row.Cell(p.schema.ProgramCodeCol))
	} else {
		code, err = classifier.ParseCode(row.Cell(p.schema.SubprogramCodeCol))
	}
	if err != nil {
		res.Stats.SkippedSubprograms++
		res.Stats.Warn("row %d: unparseable subprogram code: %v", i+1, err)
		p.log.Warn("skipping subprogram row", "row", i+1, "err", err)
		return i + 1, nil
	}

	if ctx.stateBodyName == "" || !ctx.hasProgram {
		res.Stats.SkippedSubprograms++
		res.Stats.Warn("row %d: subprogram without enclosing hierarchy ignored", i+1)
		return i + 1, nil
	}

	var name, desc, subType string
	next := i + 1
	if p.schema.InRowDetails {
		name = row.Cell(p.schema.NameCol)
		desc = row.Cell(p.schema.DescCol)
		subType = row.Cell(p.schema.TypeCol)
	} else {
		block, err := collectDetails(grid, i+1, p.schema.SubprogramLabels, p.schema, &res.Stats)
		if err != nil {
			return 0, err
		}
		name, desc, subType = block.Values()
		next = block.Next
	}

	rec := buildRecord(p.year, ctx, subprogramRow{
		code:    code,
		ext:     ext,
		name:    name,
		desc:    desc,
		kind:    subType,
		amounts: p.extractAmounts(row),
	})
	res.Records = append(res.Records, rec)
	res.Stats.RecordsEmitted++
	return next, nil
}

// extractAmounts reads every schema financial field from a header row.
// Percentage columns are scaled to fractions at this point, tolerating "-"
// and other placeholders as 0.0. Non-percentage cells that do not parse stay
// absent (null), never zero.
func (p *Parser) extractAmounts(row types.RawRow) map[string]float64 {
	amounts := make(map[string]float64, len(p.schema.Fields))
	for field, col := range p.schema.Fields {
		cell := row.Cell(col)
		if p.schema.PercentFields[field] {
			amounts[field] = classifier.ParsePercent(cell)
			continue
		}
		if v, ok := classifier.ParseAmount(cell); ok {
			amounts[field] = v
		}
	}
	return amounts
}

// extractOverall finalizes the overall totals from the grand-total row.
func (p *Parser) extractOverall(row types.RawRow) *types.OverallTotals {
	overall := &types.OverallTotals{Amounts: p.extractAmounts(row)}
	if p.schema.Kind == types.MTEFPlan {
		overall.ForecastYears = []int{p.year, p.year + 1, p.year + 2}
	}
	return overall
}
