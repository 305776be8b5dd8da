// =============================================================================
// Budget Workbook Extractor - SQLite Sink
// =============================================================================
//
// The SQLite sink accumulates extractions across runs so multiple years and
// source kinds can be queried together. Amounts live in a long-form table
// keyed by (record, level, field): the four source kinds carry different
// field sets, and long form avoids a union of every column.
//
// One extraction is one transaction; a failed save leaves the database
// unchanged.
//
// =============================================================================

package exporter

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/armbudget/extractor/internal/schema"
	"github.com/armbudget/extractor/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extractions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_kind  TEXT NOT NULL,
	source_file  TEXT NOT NULL,
	year         INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	extraction_id    INTEGER NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
	state_body       TEXT NOT NULL,
	program_code     INTEGER NOT NULL,
	program_code_ext TEXT NOT NULL DEFAULT '',
	program_name     TEXT NOT NULL DEFAULT '',
	program_goal     TEXT NOT NULL DEFAULT '',
	program_result   TEXT NOT NULL DEFAULT '',
	subprogram_code  INTEGER NOT NULL DEFAULT 0,
	subprogram_name  TEXT NOT NULL DEFAULT '',
	subprogram_desc  TEXT NOT NULL DEFAULT '',
	subprogram_type  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS amounts (
	record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	level     TEXT NOT NULL,
	field     TEXT NOT NULL,
	amount    REAL NOT NULL,
	PRIMARY KEY (record_id, level, field)
);

CREATE TABLE IF NOT EXISTS overall_totals (
	extraction_id INTEGER NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
	field         TEXT NOT NULL,
	amount        REAL NOT NULL,
	PRIMARY KEY (extraction_id, field)
);

CREATE INDEX IF NOT EXISTS idx_records_extraction ON records(extraction_id);
`

// Store is the SQLite-backed extraction sink.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path and applies the
// schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply database schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (st *Store) Close() error {
	return st.db.Close()
}

// SaveExtraction persists one parsed workbook atomically and returns the new
// extraction id.
func (st *Store) SaveExtraction(sourceFile string, year int, records []types.FlattenedRecord, overall *types.OverallTotals, s *schema.ColumnSchema) (int64, error) {
	tx, err := st.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO extractions (source_kind, source_file, year, created_at) VALUES (?, ?, ?, ?)`,
		string(s.Kind), sourceFile, year, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert extraction: %w", err)
	}
	extractionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read extraction id: %w", err)
	}

	insertRecord, err := tx.Prepare(`
		INSERT INTO records (
			extraction_id, state_body, program_code, program_code_ext,
			program_name, program_goal, program_result,
			subprogram_code, subprogram_name, subprogram_desc, subprogram_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer insertRecord.Close()

	insertAmount, err := tx.Prepare(
		`INSERT INTO amounts (record_id, level, field, amount) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare amount insert: %w", err)
	}
	defer insertAmount.Close()

	for _, rec := range records {
		res, err := insertRecord.Exec(
			extractionID, rec.StateBody, rec.ProgramCode, rec.ProgramCodeExt,
			rec.ProgramName, rec.ProgramGoal, rec.ProgramResultDesc,
			rec.SubprogramCode, rec.SubprogramName, rec.SubprogramDesc, rec.SubprogramType,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		recordID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read record id: %w", err)
		}

		levels := []struct {
			name    string
			amounts map[string]float64
		}{
			{"state_body", rec.StateBodyAmounts},
			{"program", rec.ProgramAmounts},
			{"subprogram", rec.SubprogramAmounts},
		}
		for _, lvl := range levels {
			// iterate the schema's field order so inserts are deterministic
			for _, field := range s.FieldOrder {
				v, ok := lvl.amounts[field]
				if !ok {
					continue
				}
				if _, err := insertAmount.Exec(recordID, lvl.name, field, v); err != nil {
					return 0, fmt.Errorf("failed to insert amount: %w", err)
				}
			}
		}
	}

	if overall != nil {
		for _, field := range s.FieldOrder {
			v, ok := overall.Amounts[field]
			if !ok {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO overall_totals (extraction_id, field, amount) VALUES (?, ?, ?)`,
				extractionID, field, v,
			); err != nil {
				return 0, fmt.Errorf("failed to insert overall total: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit extraction: %w", err)
	}
	return extractionID, nil
}

// CountRecords returns the number of stored records for one extraction.
// Used by tests and the batch summary.
func (st *Store) CountRecords(extractionID int64) (int, error) {
	var n int
	err := st.db.QueryRow(`SELECT COUNT(*) FROM records WHERE extraction_id = ?`, extractionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
