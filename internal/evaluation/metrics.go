// Package evaluation measures extraction and recommendation quality over
// labeled reports.
package evaluation

import (
	"math"
	"strings"

	"github.com/birads-report-server/internal/domain"
)

// ExtractionMetrics summarizes entity-extraction quality.
type ExtractionMetrics struct {
	// BiradsAccuracy is computed over pairs where both sides carry a
	// classification; NaN when no such pair exists.
	BiradsAccuracy float64 `json:"birads_accuracy"`
	// FindingsCountDiff is the mean absolute difference between predicted
	// and ground-truth finding counts over all pairs.
	FindingsCountDiff float64 `json:"findings_count_diff"`
	EvaluatedPairs    int     `json:"evaluated_pairs"`
}

// RecommendationMetrics summarizes the binary biopsy-recommendation
// decision. Zero denominators yield 0, never NaN.
type RecommendationMetrics struct {
	BiopsyAccuracy  float64 `json:"biopsy_accuracy"`
	BiopsyPrecision float64 `json:"biopsy_precision"`
	BiopsyRecall    float64 `json:"biopsy_recall"`
	BiopsyF1        float64 `json:"biopsy_f1"`
	TrueNegative    int     `json:"true_negative"`
	FalsePositive   int     `json:"false_positive"`
	FalseNegative   int     `json:"false_negative"`
	TruePositive    int     `json:"true_positive"`
}

// SystemReport aggregates both metric sets over an evaluation run.
type SystemReport struct {
	EntityExtraction ExtractionMetrics     `json:"entity_extraction"`
	Recommendations  RecommendationMetrics `json:"recommendations"`
	NumReports       int                   `json:"num_reports"`
}

// EvaluateExtraction compares predicted entities against ground truth,
// pairwise by index. Extra elements on either side are ignored.
func EvaluateExtraction(predicted, groundTruth []*domain.Entities) ExtractionMetrics {
	n := len(predicted)
	if len(groundTruth) < n {
		n = len(groundTruth)
	}

	var biradsPairs, biradsCorrect int
	var diffSum float64
	for i := 0; i < n; i++ {
		pred, gt := predicted[i], groundTruth[i]

		if pred.BiradsClassification != "" && gt.BiradsClassification != "" {
			biradsPairs++
			if pred.BiradsClassification == gt.BiradsClassification {
				biradsCorrect++
			}
		}

		diffSum += math.Abs(float64(len(pred.Findings) - len(gt.Findings)))
	}

	metrics := ExtractionMetrics{EvaluatedPairs: n}
	if biradsPairs > 0 {
		metrics.BiradsAccuracy = float64(biradsCorrect) / float64(biradsPairs)
	} else {
		metrics.BiradsAccuracy = math.NaN()
	}
	if n > 0 {
		metrics.FindingsCountDiff = diffSum / float64(n)
	}
	return metrics
}

// EvaluateRecommendations reduces each bundle to a binary "biopsy
// recommended" decision and scores the prediction against ground truth.
func EvaluateRecommendations(predicted, groundTruth []*domain.RecommendationBundle) RecommendationMetrics {
	n := len(predicted)
	if len(groundTruth) < n {
		n = len(groundTruth)
	}

	var metrics RecommendationMetrics
	for i := 0; i < n; i++ {
		pred := recommendsBiopsy(predicted[i])
		truth := recommendsBiopsy(groundTruth[i])

		switch {
		case pred && truth:
			metrics.TruePositive++
		case pred && !truth:
			metrics.FalsePositive++
		case !pred && truth:
			metrics.FalseNegative++
		default:
			metrics.TrueNegative++
		}
	}

	if n > 0 {
		metrics.BiopsyAccuracy = float64(metrics.TruePositive+metrics.TrueNegative) / float64(n)
	}
	metrics.BiopsyPrecision = safeRatio(metrics.TruePositive, metrics.TruePositive+metrics.FalsePositive)
	metrics.BiopsyRecall = safeRatio(metrics.TruePositive, metrics.TruePositive+metrics.FalseNegative)
	if metrics.BiopsyPrecision+metrics.BiopsyRecall > 0 {
		metrics.BiopsyF1 = 2 * metrics.BiopsyPrecision * metrics.BiopsyRecall /
			(metrics.BiopsyPrecision + metrics.BiopsyRecall)
	}
	return metrics
}

// analyzer is the slice of the pipeline the harness needs.
type analyzer interface {
	Process(reportText string) (*domain.AnalysisResult, error)
}

// EvaluateSystem runs the pipeline on each labeled report and aggregates
// both metric sets. A report the pipeline rejects fails the whole run.
func EvaluateSystem(a analyzer, reports []LabeledReport) (*SystemReport, error) {
	predEntities := make([]*domain.Entities, 0, len(reports))
	predBundles := make([]*domain.RecommendationBundle, 0, len(reports))
	truthEntities := make([]*domain.Entities, 0, len(reports))
	truthBundles := make([]*domain.RecommendationBundle, 0, len(reports))

	for i := range reports {
		result, err := a.Process(reports[i].Text)
		if err != nil {
			return nil, err
		}
		predEntities = append(predEntities, result.Entities)
		predBundles = append(predBundles, result.Recommendations)

		truth := reports[i].GroundTruth
		if truth.Entities == nil {
			truth.Entities = domain.NewEntities()
		}
		truthEntities = append(truthEntities, truth.Entities)
		truthBundles = append(truthBundles, truth.Recommendations)
	}

	return &SystemReport{
		EntityExtraction: EvaluateExtraction(predEntities, truthEntities),
		Recommendations:  EvaluateRecommendations(predBundles, truthBundles),
		NumReports:       len(reports),
	}, nil
}

// recommendsBiopsy reports whether any complementary exam mentions a
// biopsy.
func recommendsBiopsy(bundle *domain.RecommendationBundle) bool {
	if bundle == nil {
		return false
	}
	for _, exam := range bundle.ComplementaryExams {
		if strings.Contains(strings.ToLower(exam.Type), "biopsie") {
			return true
		}
	}
	return false
}

func safeRatio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
