package exporter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

func lawRecord() types.FlattenedRecord {
	return types.FlattenedRecord{
		Year:              2025,
		StateBody:         "Առաջին մարմին",
		ProgramCode:       1004,
		ProgramName:       "Հանրակրթություն",
		ProgramGoal:       "Որակյալ կրթություն",
		ProgramResultDesc: "Կրթված սերունդ",
		SubprogramCode:    11001,
		SubprogramName:    "Դպրոցների ֆինանսավորում",
		SubprogramDesc:    "Ծառայությունների մատուցում",
		SubprogramType:    "Ծառայություն",
		StateBodyAmounts:  map[string]float64{"total": 600000},
		ProgramAmounts:    map[string]float64{"total": 300000},
		SubprogramAmounts: map[string]float64{"total": 150000},
	}
}

func TestCellValue(t *testing.T) {
	rec := lawRecord()

	tests := []struct {
		column string
		want   string
	}{
		{"year", "2025"},
		{"state_body", "Առաջին մարմին"},
		{"program_code", "1004"},
		{"program_code_ext", ""},
		{"program_name", "Հանրակրթություն"},
		{"subprogram_code", "11001"},
		{"subprogram_type", "Ծառայություն"},
		{"state_body_total", "600000"},
		{"program_total", "300000"},
		{"subprogram_total", "150000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellValue(rec, tt.column), "column %s", tt.column)
	}
}

// Absent amounts render as empty cells, never "0".
func TestCellValueAbsentAmount(t *testing.T) {
	rec := lawRecord()
	delete(rec.SubprogramAmounts, "total")
	assert.Equal(t, "", cellValue(rec, "subprogram_total"))
}

func TestWriteCSV(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, WriteCSV(path, []types.FlattenedRecord{lawRecord()}, s))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, s.OutputColumns(), rows[0])
	assert.Equal(t, "2025", rows[1][0])
	assert.Equal(t, "Առաջին մարմին", rows[1][1])
	assert.Equal(t, "150000", rows[1][len(rows[1])-1])
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	s := schema.MustForKind(types.MTEFPlan)
	path := filepath.Join(t.TempDir(), "empty.csv")

	require.NoError(t, WriteCSV(path, nil, s))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, s.OutputColumns(), rows[0])
}

func TestWriteXLSX(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, WriteXLSX(path, []types.FlattenedRecord{lawRecord()}, s))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(recordSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "year", rows[0][0])
	assert.Equal(t, "2025", rows[1][0])

	// numeric cell stays numeric
	v, err := f.GetCellValue(recordSheet, "M2") // subprogram_total, 13th column
	require.NoError(t, err)
	assert.Equal(t, "150000", v)
}

func TestWriteOverallTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "totals.json")
	overall := &types.OverallTotals{
		Amounts:       map[string]float64{"year1": 100, "year2": 110, "year3": 120},
		ForecastYears: []int{2026, 2027, 2028},
	}

	require.NoError(t, WriteOverallTotals(path, overall))

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded types.OverallTotals
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, overall.Amounts, decoded.Amounts)
	assert.Equal(t, overall.ForecastYears, decoded.ForecastYears)

	assert.Error(t, WriteOverallTotals(filepath.Join(t.TempDir(), "x.json"), nil))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := schema.MustForKind(types.BudgetLaw)
	path := filepath.Join(t.TempDir(), "extractions.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	records := []types.FlattenedRecord{lawRecord(), lawRecord()}
	overall := &types.OverallTotals{Amounts: map[string]float64{"total": 1000000}}

	id, err := store.SaveExtraction("law_2025.xlsx", 2025, records, overall, s)
	require.NoError(t, err)
	assert.Positive(t, id)

	n, err := store.CountRecords(id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// a second extraction gets its own id and leaves the first intact
	id2, err := store.SaveExtraction("law_2026.xlsx", 2026, records[:1], overall, s)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	n, err = store.CountRecords(id2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Null amounts are simply not inserted.
func TestSQLiteStoreSkipsAbsentAmounts(t *testing.T) {
	s := schema.MustForKind(types.SpendingYear)
	path := filepath.Join(t.TempDir(), "extractions.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	rec := lawRecord()
	rec.SubprogramAmounts = map[string]float64{"annual": 100} // 3 fields absent
	rec.StateBodyAmounts = nil
	rec.ProgramAmounts = nil

	id, err := store.SaveExtraction("spend.xlsx", 2024, []types.FlattenedRecord{rec}, nil, s)
	require.NoError(t, err)

	var count int
	err = store.db.QueryRow(
		`SELECT COUNT(*) FROM amounts a JOIN records r ON r.id = a.record_id WHERE r.extraction_id = ?`,
		id,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
