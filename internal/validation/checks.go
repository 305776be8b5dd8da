// =============================================================================
// Budget Workbook Extractor - Consistency Checks
// =============================================================================
//
// The individual checks run by the registry, in registry order. Structural
// checks (fields, identifiers) come before the arithmetic ones so a report
// reads from "is the table shaped right" to "do the numbers add up".
//
// =============================================================================

package validation

import (
	"math"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

// =============================================================================
// REQUIRED FIELDS
// =============================================================================

// requiredFieldsCheck verifies that every schema-declared financial field is
// present somewhere at every level and on the overall totals. A field no
// record carries means the column was not extracted at all. Single
// aggregated result.
type requiredFieldsCheck struct{}

func (requiredFieldsCheck) ID() string                      { return "required_fields" }
func (requiredFieldsCheck) AppliesTo(types.SourceKind) bool { return true }

func (c requiredFieldsCheck) Validate(records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	res := newResult(c.ID(), SeverityError)

	for _, field := range s.FieldOrder {
		if overall == nil {
			res.fail("overall totals missing entirely")
			break
		}
		if _, ok := overall.Amounts[field]; !ok {
			res.fail("overall field %q missing", field)
		}
	}

	for level := 0; level < s.Levels; level++ {
		entities := entitiesAtLevel(records, level)
		for _, field := range s.FieldOrder {
			found := false
			for _, e := range entities {
				if _, ok := e.amounts[field]; ok {
					found = true
					break
				}
			}
			if !found && len(entities) > 0 {
				res.fail("field %q absent from every %s", field, levelNames[level])
			}
		}
	}

	return []CheckResult{*res}
}

// =============================================================================
// EMPTY IDENTIFIERS
// =============================================================================

// emptyIdentifiersCheck counts rows with blank identifier text per level.
// The subprogram level is skipped for the two-level plan kind.
type emptyIdentifiersCheck struct{}

func (emptyIdentifiersCheck) ID() string                      { return "empty_identifiers" }
func (emptyIdentifiersCheck) AppliesTo(types.SourceKind) bool { return true }

func (c emptyIdentifiersCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	stateBody := newResult(c.ID()+".state_body", SeverityError)
	program := newResult(c.ID()+".program", SeverityError)
	for i, r := range records {
		if r.StateBody == "" {
			stateBody.fail("record %d: blank state body name", i)
		}
		if r.ProgramName == "" {
			program.fail("record %d: blank program name (code %d)", i, r.ProgramCode)
		}
	}
	results := []CheckResult{*stateBody, *program}

	if s.Levels >= 3 {
		sub := newResult(c.ID()+".subprogram", SeverityError)
		for i, r := range records {
			if r.SubprogramName == "" {
				sub.fail("record %d: blank subprogram name (code %d)", i, r.SubprogramCode)
			}
		}
		results = append(results, *sub)
	}
	return results
}

// =============================================================================
// MISSING FINANCIAL DATA
// =============================================================================

// missingFinancialDataCheck counts null (absent, not zero) financial cells
// per level, and overall fields against absence.
type missingFinancialDataCheck struct{}

func (missingFinancialDataCheck) ID() string                      { return "missing_financial_data" }
func (missingFinancialDataCheck) AppliesTo(types.SourceKind) bool { return true }

func (c missingFinancialDataCheck) Validate(records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	overallRes := newResult(c.ID()+".overall", SeverityError)
	if overall == nil {
		overallRes.fail("overall totals missing entirely")
	} else {
		for _, field := range s.FieldOrder {
			if _, ok := overall.Amounts[field]; !ok {
				overallRes.fail("overall field %q is null", field)
			}
		}
	}
	results := []CheckResult{*overallRes}

	for level := 0; level < s.Levels; level++ {
		res := newResult(c.ID()+"."+levelNames[level], SeverityError)
		for _, e := range entitiesAtLevel(records, level) {
			for _, field := range s.FieldOrder {
				if _, ok := e.amounts[field]; !ok {
					res.fail("%s: field %q is null", e.label, field)
				}
			}
		}
		results = append(results, *res)
	}
	return results
}

// =============================================================================
// HIERARCHICAL TOTALS
// =============================================================================

// hierarchicalTotalsCheck verifies, for every non-percentage amount field,
// the three cross-level sums: overall vs distinct state bodies, each state
// body vs its distinct programs, and each program vs its subprograms (the
// last junction is skipped for the two-level plan kind). A difference within
// the absolute tolerance passes.
type hierarchicalTotalsCheck struct {
	tolerances map[types.SourceKind]float64
}

func (hierarchicalTotalsCheck) ID() string                      { return "hierarchical_totals" }
func (hierarchicalTotalsCheck) AppliesTo(types.SourceKind) bool { return true }

func (c hierarchicalTotalsCheck) tolerance(s *schema.ColumnSchema) float64 {
	if t, ok := c.tolerances[s.Kind]; ok {
		return t
	}
	return s.Tolerance
}

func (c hierarchicalTotalsCheck) Validate(records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	tol := c.tolerance(s)
	fields := s.AmountFields()

	overallRes := newResult(c.ID()+".overall", SeverityError)
	stateBodies := distinctStateBodies(records)
	for _, field := range fields {
		if overall == nil {
			break
		}
		want, ok := overall.Amounts[field]
		if !ok {
			continue
		}
		sum := 0.0
		for _, sb := range stateBodies {
			sum += sb.amounts[field]
		}
		if diff := math.Abs(sum - want); diff > tol {
			overallRes.fail("field %q: state bodies sum to %.2f, overall total is %.2f (diff %.2f > %.2f)",
				field, sum, want, diff, tol)
		}
	}

	sbRes := newResult(c.ID()+".state_body", SeverityError)
	programs := distinctPrograms(records)
	programsBySB := make(map[string][]levelEntity)
	seenProg := make(map[string]bool)
	for _, r := range records {
		k := programKey(r)
		if seenProg[k] {
			continue
		}
		seenProg[k] = true
		programsBySB[r.StateBody] = append(programsBySB[r.StateBody], levelEntity{
			key:     k,
			amounts: r.ProgramAmounts,
		})
	}
	for _, sb := range stateBodies {
		for _, field := range fields {
			want, ok := sb.amounts[field]
			if !ok {
				continue
			}
			sum := 0.0
			for _, p := range programsBySB[sb.key] {
				sum += p.amounts[field]
			}
			if diff := math.Abs(sum - want); diff > tol {
				sbRes.fail("%s, field %q: programs sum to %.2f, state body total is %.2f (diff %.2f > %.2f)",
					sb.label, field, sum, want, diff, tol)
			}
		}
	}

	results := []CheckResult{*overallRes, *sbRes}

	if s.Levels >= 3 {
		progRes := newResult(c.ID()+".program", SeverityError)
		subSums := make(map[string]map[string]float64)
		for _, r := range records {
			k := programKey(r)
			if subSums[k] == nil {
				subSums[k] = make(map[string]float64)
			}
			for _, field := range fields {
				if v, ok := r.SubprogramAmounts[field]; ok {
					subSums[k][field] += v
				}
			}
		}
		for _, p := range programs {
			for _, field := range fields {
				want, ok := p.amounts[field]
				if !ok {
					continue
				}
				sum := subSums[p.key][field]
				if diff := math.Abs(sum - want); diff > tol {
					progRes.fail("%s, field %q: subprograms sum to %.2f, program total is %.2f (diff %.2f > %.2f)",
						p.label, field, sum, want, diff, tol)
				}
			}
		}
		results = append(results, *progRes)
	}

	return results
}

// =============================================================================
// NEGATIVE TOTALS
// =============================================================================

// negativeTotalsCheck flags negative amount fields per level. Negatives high
// in the hierarchy are errors; at the leaf they are warnings, since point
// corrections are expected there.
type negativeTotalsCheck struct{}

func (negativeTotalsCheck) ID() string                      { return "negative_totals" }
func (negativeTotalsCheck) AppliesTo(types.SourceKind) bool { return true }

func (c negativeTotalsCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	var results []CheckResult
	for level := 0; level < s.Levels; level++ {
		severity := SeverityError
		if level == 2 {
			severity = SeverityWarning
		}
		res := newResult(c.ID()+"."+levelNames[level], severity)
		for _, e := range entitiesAtLevel(records, level) {
			for _, field := range s.AmountFields() {
				if v, ok := e.amounts[field]; ok && v < 0 {
					res.fail("%s: field %q is negative (%.2f)", e.label, field, v)
				}
			}
		}
		results = append(results, *res)
	}
	return results
}

// =============================================================================
// PERIOD VS ANNUAL
// =============================================================================

// periodVsAnnualCheck verifies period_plan ≤ annual_plan and
// revised_period_plan ≤ revised_annual_plan per level. A violation is an
// error when both operands are non-negative; it is downgraded to a warning
// when a negative operand is present, or when the revised pair independently
// satisfies the constraint (a legitimate mid-year budget correction).
type periodVsAnnualCheck struct{}

func (periodVsAnnualCheck) ID() string { return "period_vs_annual" }

func (periodVsAnnualCheck) AppliesTo(kind types.SourceKind) bool {
	return kind == types.SpendingQuarter
}

func (c periodVsAnnualCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	strict := newResult(c.ID(), SeverityError)
	relaxed := newResult(c.ID()+".relaxed", SeverityWarning)

	for level := 0; level < s.Levels; level++ {
		for _, e := range entitiesAtLevel(records, level) {
			c.checkPair(e, "period", "annual", true, strict, relaxed)
			c.checkPair(e, "period_revised", "annual_revised", false, strict, relaxed)
		}
	}
	return []CheckResult{*strict, *relaxed}
}

// checkPair tests one period ≤ annual inequality. correctable marks the
// original pair, whose violations are forgiven when the revised pair holds.
func (periodVsAnnualCheck) checkPair(e levelEntity, periodField, annualField string, correctable bool, strict, relaxed *CheckResult) {
	period, okP := e.amounts[periodField]
	annual, okA := e.amounts[annualField]
	if !okP || !okA || period <= annual {
		return
	}

	downgrade := period < 0 || annual < 0
	if correctable && !downgrade {
		revP, okRP := e.amounts["period_revised"]
		revA, okRA := e.amounts["annual_revised"]
		if okRP && okRA && revP <= revA {
			downgrade = true
		}
	}

	if downgrade {
		relaxed.fail("%s: %s %.2f exceeds %s %.2f", e.label, periodField, period, annualField, annual)
	} else {
		strict.fail("%s: %s %.2f exceeds %s %.2f", e.label, periodField, period, annualField, annual)
	}
}

// =============================================================================
// PERCENTAGE CHECKS
// =============================================================================

// negativePercentagesCheck: execution rates must never be negative.
type negativePercentagesCheck struct{}

func (negativePercentagesCheck) ID() string { return "negative_percentages" }

func (negativePercentagesCheck) AppliesTo(kind types.SourceKind) bool {
	return len(schema.MustForKind(kind).PercentFieldNames()) > 0
}

func (c negativePercentagesCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	res := newResult(c.ID(), SeverityError)
	for level := 0; level < s.Levels; level++ {
		for _, e := range entitiesAtLevel(records, level) {
			for _, field := range s.PercentFieldNames() {
				if v, ok := e.amounts[field]; ok && v < 0 {
					res.fail("%s: rate %q is negative (%.4f)", e.label, field, v)
				}
			}
		}
	}
	return []CheckResult{*res}
}

// executionExceeds100Check flags rates above 1.0. Overspending can be
// legitimate, so this is warning-level.
type executionExceeds100Check struct{}

func (executionExceeds100Check) ID() string { return "execution_exceeds_100" }

func (executionExceeds100Check) AppliesTo(kind types.SourceKind) bool {
	return len(schema.MustForKind(kind).PercentFieldNames()) > 0
}

func (c executionExceeds100Check) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	res := newResult(c.ID(), SeverityWarning)
	for level := 0; level < s.Levels; level++ {
		for _, e := range entitiesAtLevel(records, level) {
			for _, field := range s.PercentFieldNames() {
				if v, ok := e.amounts[field]; ok && v > 1.0 {
					res.fail("%s: rate %q is %.1f%%", e.label, field, v*100)
				}
			}
		}
	}
	return []CheckResult{*res}
}

// percentageCalculationCheck recomputes each reported execution rate as
// actual / revised denominator and compares within an absolute tolerance.
// Zero or missing denominators are treated as pass.
type percentageCalculationCheck struct{}

// rateTolerance is the absolute tolerance on recomputed execution rates.
const rateTolerance = 0.001

func (percentageCalculationCheck) ID() string { return "percentage_calculation" }

func (percentageCalculationCheck) AppliesTo(kind types.SourceKind) bool {
	return len(schema.MustForKind(kind).PercentFieldNames()) > 0
}

func (c percentageCalculationCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, s *schema.ColumnSchema) []CheckResult {
	res := newResult(c.ID(), SeverityError)
	for level := 0; level < s.Levels; level++ {
		for _, e := range entitiesAtLevel(records, level) {
			for _, field := range s.PercentFieldNames() {
				reported, ok := e.amounts[field]
				if !ok {
					continue
				}
				denomField := s.RateDenominator(field)
				denom, okD := e.amounts[denomField]
				actual, okA := e.amounts["actual"]
				if !okD || !okA || denom == 0 {
					continue
				}
				if math.Abs(reported-actual/denom) > rateTolerance {
					res.fail("%s: rate %q reported %.4f, recomputed %.4f",
						e.label, field, reported, actual/denom)
				}
			}
		}
	}
	return []CheckResult{*res}
}

// =============================================================================
// STRUCTURE SANITY
// =============================================================================

// structureSanityCheck rejects degenerate budget-law extractions: every
// state body carrying an identical program count, or no state body carrying
// more than one program. Either is a cheap signal that the parser mis-fired
// on an unfamiliar layout.
type structureSanityCheck struct{}

func (structureSanityCheck) ID() string { return "structure_sanity" }

func (structureSanityCheck) AppliesTo(kind types.SourceKind) bool {
	return kind == types.BudgetLaw
}

func (c structureSanityCheck) Validate(records []types.FlattenedRecord, _ *types.OverallTotals, _ *schema.ColumnSchema) []CheckResult {
	res := newResult(c.ID(), SeverityWarning)

	counts := make(map[string]map[string]bool)
	var order []string
	for _, r := range records {
		if counts[r.StateBody] == nil {
			counts[r.StateBody] = make(map[string]bool)
			order = append(order, r.StateBody)
		}
		counts[r.StateBody][programKey(r)] = true
	}

	if len(order) == 0 {
		res.fail("no state bodies extracted")
		return []CheckResult{*res}
	}

	maxPrograms := 0
	uniform := true
	first := len(counts[order[0]])
	for _, sb := range order {
		n := len(counts[sb])
		if n > maxPrograms {
			maxPrograms = n
		}
		if n != first {
			uniform = false
		}
	}

	if len(order) > 1 && uniform {
		res.fail("every state body has exactly %d program(s)", first)
	}
	if maxPrograms <= 1 {
		res.fail("no state body has more than one program")
	}
	return []CheckResult{*res}
}
