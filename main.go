// =============================================================================
// Budget Workbook Extractor - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Budget Workbook Extractor CLI. It
// initializes the Cobra CLI framework and delegates command execution to the
// cmd package.
//
// USAGE:
//   budgetctl extract   - Extract flattened records from budget workbooks
//   budgetctl validate  - Parse one workbook and print its validation report
//   budgetctl version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core parsing, validation and export logic
//   - pkg/       : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/armbudget/extractor/cmd"
)

// main simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
