package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "reports"),
		filepath.Join(root, "archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func TestEnsureDirectories(t *testing.T) {
	fm := newTestManager(t)
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.ReportDir, fm.ArchiveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDiscoverWorkbooks(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "law_2025.xlsx"))
	touch(t, filepath.Join(fm.InputDir, "spending_q2.xlsx"))
	touch(t, filepath.Join(fm.InputDir, "notes.txt"))
	touch(t, filepath.Join(fm.InputDir, "~$law_2025.xlsx")) // Excel lock file

	all, err := fm.DiscoverWorkbooks(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	law, err := fm.DiscoverWorkbooks([]string{"law_*.xlsx"})
	require.NoError(t, err)
	require.Len(t, law, 1)
	assert.Equal(t, "law_2025.xlsx", filepath.Base(law[0]))

	none, err := fm.DiscoverWorkbooks([]string{"*.csv"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestYearFromFileName(t *testing.T) {
	tests := []struct {
		path string
		year int
		ok   bool
	}{
		{"budget_law_2025.xlsx", 2025, true},
		{"/data/in/mtef_2027_plan.xlsx", 2027, true},
		{"spending_1999_q4.xlsx", 1999, true},
		{"law.xlsx", 0, false},
		{"report_99.xlsx", 0, false},
	}
	for _, tt := range tests {
		year, ok := YearFromFileName(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.year, year, tt.path)
	}
}

func TestOutputPaths(t *testing.T) {
	fm := newTestManager(t)
	base := OutputBase("budget_law", 2025, "/data/in/law file.xlsx")
	assert.Equal(t, "budget_law_2025_law file", base)

	assert.Equal(t, filepath.Join(fm.OutputDir, base+".csv"), fm.OutputPath(base, ".csv"))
	assert.Equal(t, filepath.Join(fm.ReportDir, base+".report.json"), fm.ReportPath(base, ".report.json"))
}

func TestArchiveWorkbook(t *testing.T) {
	fm := newTestManager(t)
	src := filepath.Join(fm.InputDir, "law_2025.xlsx")
	touch(t, src)

	archived, err := fm.ArchiveWorkbook(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ArchiveDir, "law_2025.xlsx"), archived)
	assert.False(t, FileExists(src))
	assert.True(t, FileExists(archived))
}

// A second archival of a same-named workbook must not overwrite the first.
func TestArchiveWorkbookCollision(t *testing.T) {
	fm := newTestManager(t)

	src := filepath.Join(fm.InputDir, "law_2025.xlsx")
	touch(t, src)
	first, err := fm.ArchiveWorkbook(src)
	require.NoError(t, err)

	touch(t, src)
	second, err := fm.ArchiveWorkbook(src)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, FileExists(first))
	assert.True(t, FileExists(second))
}

func TestArchiveDisabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveDir = ""

	src := filepath.Join(fm.InputDir, "law_2025.xlsx")
	touch(t, src)

	archived, err := fm.ArchiveWorkbook(src)
	require.NoError(t, err)
	assert.Equal(t, src, archived)
	assert.True(t, FileExists(src))
}
