package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/armbudget/extractor/internal/config"
	"github.com/armbudget/extractor/internal/types"
	"github.com/armbudget/extractor/pkg/utils"
)

// writeLawWorkbook builds a minimal consistent budget-law workbook: one
// state body, one program, one subprogram, all totals equal.
func writeLawWorkbook(t *testing.T, path string, programTotal string) {
	t.Helper()

	rows := [][]any{
		{"", "", "ԸՆԴԱՄԵՆԸ", "300000"},
		{"", "", "Առաջին մարմին", "300000"},
		{"1004", "", "Հանրակրթություն", programTotal},
		{"", "", "Հանրակրթություն", ""},
		{"", "", "Ծրագրի նպատակը", ""},
		{"", "", "Որակյալ կրթություն", ""},
		{"", "", "Վերջնական արդյունքի նկարագրությունը", ""},
		{"", "", "Կրթված սերունդ", ""},
		{"", "", "Ծրագրի միջոցառումներ", ""},
		{"", "11001", "Դպրոցների ֆինանսավորում", "300000"},
		{"", "", "Դպրոցների ֆինանսավորում", ""},
		{"", "", "Միջոցառման նկարագրությունը", ""},
		{"", "", "Ֆինանսավորման տրամադրում", ""},
		{"", "", "Միջոցառման տեսակը", ""},
		{"", "", "Ծառայություն", ""},
	}

	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.ReportDir = filepath.Join(root, "reports")
	cfg.ArchiveDir = filepath.Join(root, "archive")
	cfg.DatabasePath = filepath.Join(root, "extractions.db")
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0755))
	return cfg
}

func TestPipelineRunSuccess(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	source := filepath.Join(cfg.InputDir, "law_2025.xlsx")
	writeLawWorkbook(t, source, "300000")

	res := p.Run(Job{FilePath: source, Kind: types.BudgetLaw, Year: 2025})

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Records)
	require.NotNil(t, res.Report)
	assert.Zero(t, res.Report.Summary.WithErrors)

	// CSV, XLSX, overall totals, JSON report, Markdown report
	require.Len(t, res.OutputFiles, 5)
	for _, f := range res.OutputFiles {
		assert.True(t, utils.FileExists(f), f)
	}

	// source moved into the archive
	assert.False(t, utils.FileExists(source))
	assert.NotEmpty(t, res.ArchivePath)
	assert.True(t, utils.FileExists(res.ArchivePath))
}

// A workbook whose totals do not add up keeps its outputs but fails and is
// not archived.
func TestPipelineRunValidationFailure(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	source := filepath.Join(cfg.InputDir, "law_2025.xlsx")
	writeLawWorkbook(t, source, "250000") // program disagrees with its subprogram

	res := p.Run(Job{FilePath: source, Kind: types.BudgetLaw, Year: 2025})

	require.NoError(t, res.Err)
	assert.False(t, res.Success)
	require.NotNil(t, res.Report)
	assert.Positive(t, res.Report.Summary.WithErrors)

	assert.Len(t, res.OutputFiles, 5)
	assert.True(t, utils.FileExists(source), "failed workbook must stay in input")
	assert.Empty(t, res.ArchivePath)
}

// A workbook with no grand-total row is a fatal parse error: no outputs at
// all.
func TestPipelineRunParseFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = "" // exercise the no-database path too
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	source := filepath.Join(cfg.InputDir, "broken.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "Հավելված"))
	require.NoError(t, f.SaveAs(source))
	require.NoError(t, f.Close())

	res := p.Run(Job{FilePath: source, Kind: types.BudgetLaw, Year: 2025})

	assert.ErrorIs(t, res.Err, types.ErrMissingGrandTotal)
	assert.False(t, res.Success)
	assert.Empty(t, res.OutputFiles)
	assert.True(t, utils.FileExists(source))
}

func TestDiscoverJobs(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	writeLawWorkbook(t, filepath.Join(cfg.InputDir, "budget_law_2025.xlsx"), "300000")
	writeLawWorkbook(t, filepath.Join(cfg.InputDir, "mtef_plan_2025.xlsx"), "300000")

	jobs, err := p.DiscoverJobs(2025)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byKind := make(map[types.SourceKind]string)
	for _, j := range jobs {
		assert.Equal(t, 2025, j.Year)
		byKind[j.Kind] = filepath.Base(j.FilePath)
	}
	assert.Equal(t, "budget_law_2025.xlsx", byKind[types.BudgetLaw])
	assert.Equal(t, "mtef_plan_2025.xlsx", byKind[types.MTEFPlan])
}

// year == 0 infers the report year from each file name.
func TestDiscoverJobsInfersYear(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	writeLawWorkbook(t, filepath.Join(cfg.InputDir, "budget_law_2024.xlsx"), "300000")

	jobs, err := p.DiscoverJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2024, jobs[0].Year)

	writeLawWorkbook(t, filepath.Join(cfg.InputDir, "budget_law_extra.xlsx"), "300000")
	_, err = p.DiscoverJobs(0)
	assert.ErrorContains(t, err, "cannot infer report year")
}
