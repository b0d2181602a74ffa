package casebase

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/birads-report-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite case store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanCase scans a row into a CaseRecord. Findings are stored as a JSON
// column; a corrupted column fails the scan rather than yielding a partial
// record.
func scanCase(s scanner) (*CaseRecord, error) {
	record := &CaseRecord{}
	var findingsJSON string

	err := s.Scan(
		&record.ID, &record.Birads, &findingsJSON,
		&record.Treatment, &record.Result, &record.FollowUp, &record.Notes,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if findingsJSON != "" {
		if err := json.Unmarshal([]byte(findingsJSON), &record.Findings); err != nil {
			return nil, fmt.Errorf("failed to decode findings: %w", err)
		}
	}
	return record, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		birads TEXT NOT NULL,
		findings TEXT NOT NULL DEFAULT '[]',
		treatment TEXT DEFAULT '',
		result TEXT DEFAULT '',
		follow_up TEXT DEFAULT '',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cases_birads ON cases(birads);
	CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates a case.
func (s *SQLiteStore) Save(ctx context.Context, record *CaseRecord) error {
	if record.ID == "" {
		return fmt.Errorf("case ID is required")
	}

	now := time.Now()

	findings := record.Findings
	if findings == nil {
		findings = []domain.Finding{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}

	// Check if exists
	var existingCreated time.Time
	err = s.db.QueryRowContext(ctx,
		"SELECT created_at FROM cases WHERE id = ?", record.ID,
	).Scan(&existingCreated)

	if err == nil {
		// Update existing
		record.CreatedAt = existingCreated
		record.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE cases SET
				birads = ?,
				findings = ?,
				treatment = ?,
				result = ?,
				follow_up = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			record.Birads,
			string(findingsJSON),
			record.Treatment,
			record.Result,
			record.FollowUp,
			record.Notes,
			now,
			record.ID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	// Insert new
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cases (
			id, birads, findings, treatment, result, follow_up, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Birads,
		string(findingsJSON),
		record.Treatment,
		record.Result,
		record.FollowUp,
		record.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// GetByID retrieves a case by ID. A missing case yields (nil, nil).
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*CaseRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, birads, findings, treatment, result, follow_up, notes,
			created_at, updated_at
		FROM cases
		WHERE id = ?
		LIMIT 1
	`, id)

	record, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// List returns cases ordered newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, birads, findings, treatment, result, follow_up, notes,
			created_at, updated_at
		FROM cases
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*CaseRecord
	for rows.Next() {
		record, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// Count returns the total number of cases.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&count)
	return count, err
}

// Delete removes a case by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all cases to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	export := &CaseExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Cases:      all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports cases from a JSON reader. Cases whose ID already
// exists are skipped.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export CaseExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, record := range export.Cases {
		existing, err := s.GetByID(ctx, record.ID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, record); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
