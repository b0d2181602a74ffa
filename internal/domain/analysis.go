package domain

import (
	"encoding/json"
	"time"
)

// AnalysisResult is the full pipeline output: the three layers returned by
// Process, serializable to JSON with exactly these top-level keys.
type AnalysisResult struct {
	Sections        SectionSet            `json:"sections"`
	Entities        *Entities             `json:"entities"`
	Recommendations *RecommendationBundle `json:"recommendations"`
}

// AnalysisSource identifies which surface produced an archived analysis.
type AnalysisSource string

const (
	SourceAPI AnalysisSource = "api"
	SourceMCP AnalysisSource = "mcp"
	SourceCLI AnalysisSource = "cli"
)

// AnalysisRecord is the persisted form of a completed analysis, stored by
// the Postgres archive for audit and dataset building.
type AnalysisRecord struct {
	ID                   string             `json:"id"`
	ReportHash           string             `json:"report_hash"`
	BiradsClassification ClassificationCode `json:"birads_classification,omitempty"`
	FindingsCount        int                `json:"findings_count"`
	Entities             json.RawMessage    `json:"entities"`
	Recommendations      json.RawMessage    `json:"recommendations"`
	Source               AnalysisSource     `json:"source"`
	CreatedAt            time.Time          `json:"created_at"`
}
