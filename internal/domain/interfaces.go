package domain

import (
	"context"
)

// SectionSegmenter splits raw report text into the four named sections.
type SectionSegmenter interface {
	Segment(reportText string) SectionSet
}

// EntityExtractor derives structured entities from segmented sections. The
// error is reserved for the fail-fast numeric-capture case; missing data is
// never an error.
type EntityExtractor interface {
	Extract(sections SectionSet) (*Entities, error)
}

// RecommendationEngine maps extracted entities to a recommendation bundle
// against the Knowledge Base. Deterministic and side-effect free.
type RecommendationEngine interface {
	Recommend(entities *Entities) *RecommendationBundle
}

// ReportAnalyzer runs the full pipeline: validation, segmentation,
// extraction, recommendation. Safe for concurrent use.
type ReportAnalyzer interface {
	Process(reportText string) (*AnalysisResult, error)
}

// TextEncoder produces embedding vectors for case-description texts. The
// similarity feature is the only consumer; the extraction pipeline never
// invokes it.
type TextEncoder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
	Name() string
}

// AnalysisArchive persists completed analyses for audit and statistics.
type AnalysisArchive interface {
	Create(ctx context.Context, record *AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*AnalysisRecord, error)
	List(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error)
	CountByClassification(ctx context.Context) (map[string]int, error)
}
