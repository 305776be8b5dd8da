package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// lawRecord builds one budget-law record with single "total" amounts at each
// level.
func lawRecord(sb string, pcode, scode int, sbTotal, pTotal, sTotal float64) types.FlattenedRecord {
	return types.FlattenedRecord{
		Year:              2025,
		StateBody:         sb,
		ProgramCode:       pcode,
		ProgramName:       "Ծրագիր",
		SubprogramCode:    scode,
		SubprogramName:    "Միջոցառում",
		StateBodyAmounts:  map[string]float64{"total": sbTotal},
		ProgramAmounts:    map[string]float64{"total": pTotal},
		SubprogramAmounts: map[string]float64{"total": sTotal},
	}
}

// consistentLawRecords is the balanced fixture: overall 1,000,000 over two
// state bodies, three programs, four subprograms.
func consistentLawRecords() ([]types.FlattenedRecord, *types.OverallTotals) {
	records := []types.FlattenedRecord{
		lawRecord("ՄԱՐՄԻՆ 1", 1004, 11001, 600000, 300000, 150000),
		lawRecord("ՄԱՐՄԻՆ 1", 1004, 11002, 600000, 300000, 150000),
		lawRecord("ՄԱՐՄԻՆ 1", 1005, 11003, 600000, 300000, 300000),
		lawRecord("ՄԱՐՄԻՆ 2", 1006, 11004, 400000, 400000, 400000),
	}
	overall := &types.OverallTotals{Amounts: map[string]float64{"total": 1000000}}
	return records, overall
}

func resultByID(t *testing.T, results []CheckResult, id string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.CheckID == id {
			return r
		}
	}
	t.Fatalf("no result with id %q", id)
	return CheckResult{}
}

// =============================================================================
// HIERARCHICAL TOTALS
// =============================================================================

func TestHierarchicalTotalsPass(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()

	results := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %v", r.CheckID, r.Messages)
	}
}

func TestHierarchicalTotalsWithinTolerance(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()

	// off by 0.8, inside the budget-law tolerance of 1.0
	records[3].SubprogramAmounts["total"] = 400000.8

	results := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	assert.True(t, resultByID(t, results, "hierarchical_totals.program").Passed)
}

func TestHierarchicalTotalsProgramMismatch(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()

	records[3].SubprogramAmounts["total"] = 390000

	results := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	progRes := resultByID(t, results, "hierarchical_totals.program")
	assert.False(t, progRes.Passed)
	assert.Equal(t, 1, progRes.FailCount)
	// the other junctions are untouched
	assert.True(t, resultByID(t, results, "hierarchical_totals.overall").Passed)
	assert.True(t, resultByID(t, results, "hierarchical_totals.state_body").Passed)
}

func TestHierarchicalTotalsOverallMismatch(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()
	overall.Amounts["total"] = 1100000

	results := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	assert.False(t, resultByID(t, results, "hierarchical_totals.overall").Passed)
}

func TestHierarchicalTotalsToleranceOverride(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()
	records[3].SubprogramAmounts["total"] = 399500 // off by 500

	strict := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	assert.False(t, resultByID(t, strict, "hierarchical_totals.program").Passed)

	relaxed := hierarchicalTotalsCheck{
		tolerances: map[types.SourceKind]float64{types.BudgetLaw: 1000},
	}.Validate(records, overall, s)
	assert.True(t, resultByID(t, relaxed, "hierarchical_totals.program").Passed)
}

// The two-level plan kind has no program/subprogram junction.
func TestHierarchicalTotalsPlanSkipsLeafJunction(t *testing.T) {
	s := schema.MustForKind(types.MTEFPlan)
	records := []types.FlattenedRecord{
		{
			StateBody:        "ՄԱՐՄԻՆ",
			ProgramCode:      1004,
			ProgramName:      "Ծրագիր",
			StateBodyAmounts: map[string]float64{"year1": 100, "year2": 110, "year3": 120},
			ProgramAmounts:   map[string]float64{"year1": 100, "year2": 110, "year3": 120},
		},
	}
	overall := &types.OverallTotals{Amounts: map[string]float64{"year1": 100, "year2": 110, "year3": 120}}

	results := hierarchicalTotalsCheck{}.Validate(records, overall, s)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %v", r.CheckID, r.Messages)
	}
}

// =============================================================================
// PERIOD VS ANNUAL
// =============================================================================

func quarterRecord(sub map[string]float64) types.FlattenedRecord {
	return types.FlattenedRecord{
		StateBody:         "ՄԱՐՄԻՆ",
		ProgramCode:       1104,
		ProgramCodeExt:    "1104",
		ProgramName:       "Ծրագիր",
		SubprogramCode:    11001,
		SubprogramName:    "Միջոցառում",
		SubprogramAmounts: sub,
	}
}

func TestPeriodVsAnnualError(t *testing.T) {
	s := schema.MustForKind(types.SpendingQuarter)
	records := []types.FlattenedRecord{quarterRecord(map[string]float64{
		"period_revised": 120, "annual_revised": 100,
	})}

	results := periodVsAnnualCheck{}.Validate(records, nil, s)
	strict := resultByID(t, results, "period_vs_annual")
	assert.False(t, strict.Passed)
	assert.Equal(t, SeverityError, strict.Severity)
	assert.True(t, resultByID(t, results, "period_vs_annual.relaxed").Passed)
}

// A period > annual violation on the original pair is downgraded when the
// revised pair holds: that is what a mid-year correction looks like.
func TestPeriodVsAnnualCorrectedDowngrade(t *testing.T) {
	s := schema.MustForKind(types.SpendingQuarter)
	records := []types.FlattenedRecord{quarterRecord(map[string]float64{
		"period": 120, "annual": 100,
		"period_revised": 90, "annual_revised": 100,
	})}

	results := periodVsAnnualCheck{}.Validate(records, nil, s)
	assert.True(t, resultByID(t, results, "period_vs_annual").Passed)

	relaxed := resultByID(t, results, "period_vs_annual.relaxed")
	assert.False(t, relaxed.Passed)
	assert.Equal(t, SeverityWarning, relaxed.Severity)
}

func TestPeriodVsAnnualNegativeOperandDowngrade(t *testing.T) {
	s := schema.MustForKind(types.SpendingQuarter)
	records := []types.FlattenedRecord{quarterRecord(map[string]float64{
		"period_revised": 10, "annual_revised": -5,
	})}

	results := periodVsAnnualCheck{}.Validate(records, nil, s)
	assert.True(t, resultByID(t, results, "period_vs_annual").Passed)
	assert.False(t, resultByID(t, results, "period_vs_annual.relaxed").Passed)
}

func TestPeriodVsAnnualSatisfiedPasses(t *testing.T) {
	s := schema.MustForKind(types.SpendingQuarter)
	records := []types.FlattenedRecord{quarterRecord(map[string]float64{
		"period": 90, "annual": 100,
		"period_revised": 95, "annual_revised": 100,
	})}

	for _, r := range (periodVsAnnualCheck{}).Validate(records, nil, s) {
		assert.True(t, r.Passed, "%s: %v", r.CheckID, r.Messages)
	}
}

// =============================================================================
// PERCENTAGE CHECKS
// =============================================================================

func yearRecord(sub map[string]float64) types.FlattenedRecord {
	return types.FlattenedRecord{
		StateBody:         "ՄԱՐՄԻՆ",
		ProgramCode:       1004,
		ProgramName:       "Ծրագիր",
		SubprogramCode:    11001,
		SubprogramName:    "Միջոցառում",
		SubprogramAmounts: sub,
	}
}

func TestPercentageCalculation(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)

	ok := []types.FlattenedRecord{yearRecord(map[string]float64{
		"annual_revised": 100, "actual": 50, "pct": 0.5,
	})}
	results := percentageCalculationCheck{}.Validate(ok, nil, s)
	assert.True(t, results[0].Passed, "%v", results[0].Messages)

	bad := []types.FlattenedRecord{yearRecord(map[string]float64{
		"annual_revised": 100, "actual": 50, "pct": 0.6,
	})}
	results = percentageCalculationCheck{}.Validate(bad, nil, s)
	assert.False(t, results[0].Passed)
}

// A zero or missing denominator cannot be recomputed and passes.
func TestPercentageCalculationZeroDenominator(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)
	records := []types.FlattenedRecord{yearRecord(map[string]float64{
		"annual_revised": 0, "actual": 50, "pct": 0.5,
	})}

	results := percentageCalculationCheck{}.Validate(records, nil, s)
	assert.True(t, results[0].Passed)
}

func TestNegativePercentages(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)
	records := []types.FlattenedRecord{yearRecord(map[string]float64{"pct": -0.1})}

	results := negativePercentagesCheck{}.Validate(records, nil, s)
	assert.False(t, results[0].Passed)
	assert.Equal(t, SeverityError, results[0].Severity)
}

func TestExecutionExceeds100IsWarning(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)
	records := []types.FlattenedRecord{yearRecord(map[string]float64{"pct": 1.05})}

	results := executionExceeds100Check{}.Validate(records, nil, s)
	assert.False(t, results[0].Passed)
	assert.Equal(t, SeverityWarning, results[0].Severity)
}

// =============================================================================
// NEGATIVE TOTALS
// =============================================================================

func TestNegativeTotalsSeverityByLevel(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)

	records := []types.FlattenedRecord{
		lawRecord("ՄԱՐՄԻՆ", 1004, 11001, 100, -50, -10),
	}
	results := negativeTotalsCheck{}.Validate(records, nil, s)
	require.Len(t, results, 3)

	assert.True(t, resultByID(t, results, "negative_totals.state_body").Passed)

	prog := resultByID(t, results, "negative_totals.program")
	assert.False(t, prog.Passed)
	assert.Equal(t, SeverityError, prog.Severity)

	sub := resultByID(t, results, "negative_totals.subprogram")
	assert.False(t, sub.Passed)
	assert.Equal(t, SeverityWarning, sub.Severity)
}

// =============================================================================
// IDENTIFIERS AND FIELDS
// =============================================================================

func TestEmptyIdentifiers(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, _ := consistentLawRecords()
	records[2].SubprogramName = ""

	results := emptyIdentifiersCheck{}.Validate(records, nil, s)
	assert.True(t, resultByID(t, results, "empty_identifiers.state_body").Passed)
	assert.True(t, resultByID(t, results, "empty_identifiers.program").Passed)
	assert.False(t, resultByID(t, results, "empty_identifiers.subprogram").Passed)
}

func TestRequiredFieldsMissingOverall(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)
	records := []types.FlattenedRecord{yearRecord(map[string]float64{
		"annual": 100, "annual_revised": 100, "actual": 95, "pct": 0.95,
	})}
	overall := &types.OverallTotals{Amounts: map[string]float64{"annual": 100}}

	results := requiredFieldsCheck{}.Validate(records, overall, s)
	res := results[0]
	assert.False(t, res.Passed)
	// annual_revised, actual and pct missing from overall; state body and
	// program levels carry no amounts at all in this fixture
	assert.GreaterOrEqual(t, res.FailCount, 3)
}

func TestMissingFinancialDataCountsNulls(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()
	delete(records[3].SubprogramAmounts, "total")

	results := missingFinancialDataCheck{}.Validate(records, overall, s)
	assert.True(t, resultByID(t, results, "missing_financial_data.overall").Passed)
	sub := resultByID(t, results, "missing_financial_data.subprogram")
	assert.False(t, sub.Passed)
	assert.Equal(t, 1, sub.FailCount)
}

// =============================================================================
// STRUCTURE SANITY
// =============================================================================

func TestStructureSanityHealthy(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, _ := consistentLawRecords()

	results := structureSanityCheck{}.Validate(records, nil, s)
	assert.True(t, results[0].Passed, "%v", results[0].Messages)
}

func TestStructureSanityUniformProgramCounts(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records := []types.FlattenedRecord{
		lawRecord("ՄԱՐՄԻՆ 1", 1004, 11001, 100, 50, 50),
		lawRecord("ՄԱՐՄԻՆ 1", 1005, 11002, 100, 50, 50),
		lawRecord("ՄԱՐՄԻՆ 2", 1006, 11003, 100, 50, 50),
		lawRecord("ՄԱՐՄԻՆ 2", 1007, 11004, 100, 50, 50),
	}

	results := structureSanityCheck{}.Validate(records, nil, s)
	res := results[0]
	assert.False(t, res.Passed)
	assert.Equal(t, SeverityWarning, res.Severity)
}

func TestStructureSanitySingleProgramEverywhere(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records := []types.FlattenedRecord{
		lawRecord("ՄԱՐՄԻՆ 1", 1004, 11001, 100, 100, 100),
	}

	results := structureSanityCheck{}.Validate(records, nil, s)
	res := results[0]
	assert.False(t, res.Passed)
	assert.Equal(t, 1, res.FailCount)
}

func TestStructureSanityNoRecords(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	results := structureSanityCheck{}.Validate(nil, nil, s)
	assert.False(t, results[0].Passed)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistryAppliesTo(t *testing.T) {
	reg := NewRegistry(Options{})

	law := reg.CheckIDs(types.BudgetLaw)
	assert.Contains(t, law, "structure_sanity")
	assert.NotContains(t, law, "period_vs_annual")
	assert.NotContains(t, law, "percentage_calculation")

	quarter := reg.CheckIDs(types.SpendingQuarter)
	assert.Contains(t, quarter, "period_vs_annual")
	assert.Contains(t, quarter, "percentage_calculation")
	assert.NotContains(t, quarter, "structure_sanity")
}

// Every applicable check runs even when earlier ones fail, and FailCount is
// zero exactly on passed results.
func TestRegistryRunsEveryCheck(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	records, overall := consistentLawRecords()
	records[0].StateBody = ""
	records[0].SubprogramAmounts["total"] = -5

	results := NewRegistry(Options{}).Run(records, overall, s)
	require.NotEmpty(t, results)

	failed := 0
	for _, r := range results {
		assert.Equal(t, r.FailCount == 0, r.Passed, r.CheckID)
		if !r.Passed {
			failed++
		}
	}
	assert.GreaterOrEqual(t, failed, 2)
}
