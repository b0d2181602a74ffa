package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/pkg/report"
)

// AnalyzerOptions tunes the report analyzer.
type AnalyzerOptions struct {
	// MaxReportBytes caps accepted input size; non-positive uses the
	// validator default.
	MaxReportBytes int
	// EngineOptions is forwarded to the recommendation engine.
	Engine EngineOptions
}

// AnalyzerStats counts analyzer activity since process start.
type AnalyzerStats struct {
	Processed     int64     `json:"processed"`
	Failed        int64     `json:"failed"`
	WithBirads    int64     `json:"with_birads"`
	TotalFindings int64     `json:"total_findings"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
}

// Analyzer runs the full pipeline: validation, segmentation, extraction,
// recommendation. Safe for concurrent use; the only mutable state is the
// stats counter.
type Analyzer struct {
	validator *report.Validator
	segmenter *report.Segmenter
	extractor *report.Extractor
	engine    *Engine
	logger    *logrus.Logger

	stats   AnalyzerStats
	statsMu sync.Mutex
}

// NewAnalyzer creates a report analyzer over the knowledge base.
func NewAnalyzer(kb *knowledge.Base, logger *logrus.Logger, opts AnalyzerOptions) *Analyzer {
	return &Analyzer{
		validator: report.NewValidator(opts.MaxReportBytes),
		segmenter: report.NewSegmenter(),
		extractor: report.NewExtractor(),
		engine:    NewEngine(kb, logger, opts.Engine),
		logger:    logger,
	}
}

// Process analyzes one report and returns all three layers. The only error
// sources are input validation and the extractor's fail-fast size parse;
// missing sections or attributes never fail.
func (a *Analyzer) Process(reportText string) (*domain.AnalysisResult, error) {
	startTime := time.Now()

	if err := a.validator.Validate(reportText); err != nil {
		a.recordFailure()
		return nil, err
	}

	sections := a.segmenter.Segment(reportText)

	entities, err := a.extractor.Extract(sections)
	if err != nil {
		a.recordFailure()
		return nil, fmt.Errorf("extracting entities: %w", err)
	}

	recommendations := a.engine.Recommend(entities)

	a.recordSuccess(entities)

	a.logger.WithFields(logrus.Fields{
		"birads":          entities.BiradsClassification,
		"findings":        len(entities.Findings),
		"exams":           len(recommendations.ComplementaryExams),
		"follow_ups":      len(recommendations.FollowUp),
		"processing_time": time.Since(startTime),
	}).Info("Report analysis completed")

	return &domain.AnalysisResult{
		Sections:        sections,
		Entities:        entities,
		Recommendations: recommendations,
	}, nil
}

// Stats returns a snapshot of the analyzer counters.
func (a *Analyzer) Stats() AnalyzerStats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return a.stats
}

func (a *Analyzer) recordSuccess(entities *domain.Entities) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.stats.Processed++
	a.stats.TotalFindings += int64(len(entities.Findings))
	if entities.BiradsClassification != "" {
		a.stats.WithBirads++
	}
	a.stats.LastProcessed = time.Now()
}

func (a *Analyzer) recordFailure() {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.stats.Failed++
}
