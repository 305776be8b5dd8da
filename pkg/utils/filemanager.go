// =============================================================================
// Budget Workbook Extractor - File Manager Utility
// =============================================================================
//
// This module provides the file management utilities for the extraction
// pipeline:
//   - workbook discovery and pattern matching
//   - output and report path construction
//   - archival of processed workbooks
//   - directory management
//
// ARCHIVAL STRATEGY:
//   - Source workbooks are moved to the archive directory after successful
//     processing; failed workbooks stay where they are.
//   - Name collisions in the archive get a numeric suffix instead of
//     overwriting an earlier run's file.
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the extraction pipeline.
type FileManager struct {
	// InputDir is the directory scanned for source workbooks.
	InputDir string

	// OutputDir is the directory for extracted record tables.
	OutputDir string

	// ReportDir is the directory for validation reports.
	ReportDir string

	// ArchiveDir is the directory processed workbooks are moved to. Empty
	// disables archiving.
	ArchiveDir string
}

// NewFileManager creates a FileManager for the given directory layout.
func NewFileManager(inputDir, outputDir, reportDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:   inputDir,
		OutputDir:  outputDir,
		ReportDir:  reportDir,
		ArchiveDir: archiveDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories that don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.InputDir, fm.OutputDir, fm.ReportDir}
	if fm.ArchiveDir != "" {
		dirs = append(dirs, fm.ArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// WORKBOOK DISCOVERY
// =============================================================================

// DiscoverWorkbooks scans the input directory for .xlsx files whose base
// name matches any of the patterns. Excel lock files ("~$...") are skipped.
// An empty pattern list matches every workbook.
func (fm *FileManager) DiscoverWorkbooks(patterns []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		if matchesAny(name, patterns) {
			result = append(result, filepath.Join(fm.InputDir, name))
		}
	}
	return result, nil
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT PATHS
// =============================================================================

// yearPattern matches a plausible report year embedded in a file name.
var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// YearFromFileName extracts the report year embedded in a workbook file
// name ("budget_law_2025.xlsx" → 2025). The second return is false when the
// name carries no year.
func YearFromFileName(path string) (int, bool) {
	m := yearPattern.FindString(filepath.Base(path))
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// OutputBase returns the extension-less output base name for one workbook:
// "<kind>_<year>_<original name>".
func OutputBase(kind string, year int, sourcePath string) string {
	name := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return fmt.Sprintf("%s_%d_%s", kind, year, name)
}

// OutputPath joins the output directory with a base name and extension.
func (fm *FileManager) OutputPath(base, ext string) string {
	return filepath.Join(fm.OutputDir, base+ext)
}

// ReportPath joins the report directory with a base name and extension.
func (fm *FileManager) ReportPath(base, ext string) string {
	return filepath.Join(fm.ReportDir, base+ext)
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveWorkbook moves a processed workbook into the archive directory and
// returns its new path. Archiving disabled (empty ArchiveDir) is a no-op.
func (fm *FileManager) ArchiveWorkbook(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return filePath, nil
	}

	if err := os.MkdirAll(fm.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := fm.collisionFreePath(filepath.Base(filePath))
	if err := os.Rename(filePath, archivePath); err != nil {
		// rename fails across filesystems; fall back to copy+remove
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

// collisionFreePath appends a timestamped suffix when the archive already
// holds a file with the same name.
func (fm *FileManager) collisionFreePath(fileName string) string {
	path := filepath.Join(fm.ArchiveDir, fileName)
	if !FileExists(path) {
		return path
	}
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	stamp := time.Now().Format("20060102_150405")
	path = filepath.Join(fm.ArchiveDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	for i := 1; FileExists(path); i++ {
		path = filepath.Join(fm.ArchiveDir, fmt.Sprintf("%s_%s_%d%s", stem, stamp, i, ext))
	}
	return path
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
