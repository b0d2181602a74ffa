// Package archive persists completed analyses to Postgres for audit and
// dataset building. The archive is optional; the server runs without it.
package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/domain"
)

// PostgresArchive implements domain.AnalysisArchive on a pgx pool.
type PostgresArchive struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresArchive creates an analysis archive over the connection pool.
func NewPostgresArchive(db *pgxpool.Pool, logger *logrus.Logger) *PostgresArchive {
	return &PostgresArchive{
		db:  db,
		log: logger,
	}
}

// Create inserts a new analysis record. A missing ID is generated.
func (a *PostgresArchive) Create(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO analyses (
			id, report_hash, birads_classification, findings_count,
			entities, recommendations, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err := a.db.QueryRow(ctx, query,
		record.ID,
		record.ReportHash,
		string(record.BiradsClassification),
		record.FindingsCount,
		record.Entities,
		record.Recommendations,
		string(record.Source),
	).Scan(&record.CreatedAt)

	if err != nil {
		a.log.WithFields(logrus.Fields{
			"analysis_id": record.ID,
			"report_hash": record.ReportHash,
			"error":       err,
		}).Error("Failed to archive analysis")
		return fmt.Errorf("creating analysis record: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"analysis_id": record.ID,
		"birads":      record.BiradsClassification,
		"findings":    record.FindingsCount,
		"source":      record.Source,
	}).Info("Analysis archived")

	return nil
}

// GetByID retrieves an archived analysis by its ID.
func (a *PostgresArchive) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	query := `
		SELECT id, report_hash, birads_classification, findings_count,
			   entities, recommendations, source, created_at
		FROM analyses
		WHERE id = $1`

	record, err := scanRecord(a.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("analysis", id)
		}
		a.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis by ID")
		return nil, fmt.Errorf("getting analysis by ID: %w", err)
	}

	return record, nil
}

// List retrieves archived analyses ordered newest first, with pagination.
func (a *PostgresArchive) List(ctx context.Context, limit, offset int) ([]*domain.AnalysisRecord, error) {
	query := `
		SELECT id, report_hash, birads_classification, findings_count,
			   entities, recommendations, source, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := a.db.Query(ctx, query, limit, offset)
	if err != nil {
		a.log.WithError(err).Error("Failed to list analyses")
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var records []*domain.AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis rows: %w", err)
	}

	return records, nil
}

// CountByClassification returns how many archived analyses carry each
// classification code. Analyses without a code are grouped under "".
func (a *PostgresArchive) CountByClassification(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT birads_classification, COUNT(*)
		FROM analyses
		GROUP BY birads_classification`

	rows, err := a.db.Query(ctx, query)
	if err != nil {
		a.log.WithError(err).Error("Failed to count analyses by classification")
		return nil, fmt.Errorf("counting analyses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[code] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	var birads, source string

	err := row.Scan(
		&record.ID,
		&record.ReportHash,
		&birads,
		&record.FindingsCount,
		&record.Entities,
		&record.Recommendations,
		&source,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.BiradsClassification = domain.ClassificationCode(birads)
	record.Source = domain.AnalysisSource(source)
	return &record, nil
}
