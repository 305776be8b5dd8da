// =============================================================================
// Budget Workbook Extractor - Flattened Record Builder
// =============================================================================
//
// One flattened record per subprogram: the frozen hierarchy context is
// merged with the subprogram row's own fields, so state-body and program
// figures repeat on every record belonging to them. Amount maps are copied,
// never shared, because records are immutable once built while the context
// keeps mutating for the rest of the scan.
//
// =============================================================================

package parser

import "github.com/armbudget/extractor/internal/types"

// subprogramRow carries the fields extracted from one accepted subprogram
// header row.
type subprogramRow struct {
	code    int
	ext     string
	name    string
	desc    string
	kind    string
	amounts map[string]float64
}

// buildRecord merges the current hierarchy context with a subprogram row.
func buildRecord(year int, ctx *hierarchyContext, sub subprogramRow) types.FlattenedRecord {
	return types.FlattenedRecord{
		Year:              year,
		StateBody:         ctx.stateBodyName,
		ProgramCode:       ctx.programCode,
		ProgramCodeExt:    sub.ext,
		ProgramName:       ctx.programName,
		ProgramGoal:       ctx.programGoal,
		ProgramResultDesc: ctx.programResultDesc,
		SubprogramCode:    sub.code,
		SubprogramName:    sub.name,
		SubprogramDesc:    sub.desc,
		SubprogramType:    sub.kind,
		StateBodyAmounts:  copyAmounts(ctx.stateBodyAmounts),
		ProgramAmounts:    copyAmounts(ctx.programAmounts),
		SubprogramAmounts: copyAmounts(sub.amounts),
	}
}

// buildPlanRecord emits the two-level plan kind's leaf record: the program
// itself, with no subprogram fields.
func buildPlanRecord(year int, ctx *hierarchyContext) types.FlattenedRecord {
	return types.FlattenedRecord{
		Year:              year,
		StateBody:         ctx.stateBodyName,
		ProgramCode:       ctx.programCode,
		ProgramName:       ctx.programName,
		ProgramGoal:       ctx.programGoal,
		ProgramResultDesc: ctx.programResultDesc,
		StateBodyAmounts:  copyAmounts(ctx.stateBodyAmounts),
		ProgramAmounts:    copyAmounts(ctx.programAmounts),
	}
}

func copyAmounts(src map[string]float64) map[string]float64 {
	if src == nil {
		return nil
	}
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
