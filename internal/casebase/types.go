// Package casebase provides persistent storage for the reference case base
// used by the similar-case search. Each case pairs a classified mammography
// report summary with the treatment that was given and its outcome.
package casebase

import (
	"context"
	"io"
	"time"

	"github.com/birads-report-server/internal/domain"
)

// CaseRecord is one reference case: the findings and classification of a
// past report plus what was done about it.
type CaseRecord struct {
	ID        string           `json:"id"`
	Birads    string           `json:"birads"`
	Findings  []domain.Finding `json:"findings"`
	Treatment string           `json:"treatment"`
	Result    string           `json:"result"`
	FollowUp  string           `json:"follow_up"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store defines the interface for case-base storage operations.
type Store interface {
	// Save stores or updates a case. An existing case with the same ID is
	// replaced.
	Save(ctx context.Context, record *CaseRecord) error

	// GetByID retrieves a case by its identifier. A missing case yields a
	// nil record with no error.
	GetByID(ctx context.Context, id string) (*CaseRecord, error)

	// List returns cases ordered newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*CaseRecord, error)

	// Count returns the total number of cases.
	Count(ctx context.Context) (int64, error)

	// Delete removes a case by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON exports all cases to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports cases from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// CaseExport represents the JSON export format.
type CaseExport struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Count      int           `json:"count"`
	Cases      []*CaseRecord `json:"cases"`
}
