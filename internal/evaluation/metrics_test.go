package evaluation

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birads-report-server/internal/domain"
)

func entitiesWith(code domain.ClassificationCode, findings int) *domain.Entities {
	e := domain.NewEntities()
	e.BiradsClassification = code
	for i := 0; i < findings; i++ {
		e.Findings = append(e.Findings, domain.Finding{Type: "masse", SizeMM: 10})
	}
	return e
}

func bundleWithBiopsy(biopsy bool) *domain.RecommendationBundle {
	b := domain.NewRecommendationBundle()
	if biopsy {
		b.ComplementaryExams = append(b.ComplementaryExams, domain.ExamRecommendation{
			Type: "Biopsie sous guidage échographique",
		})
	}
	return b
}

func TestEvaluateExtraction(t *testing.T) {
	predicted := []*domain.Entities{
		entitiesWith("4A", 1),
		entitiesWith("3", 2),
		entitiesWith("", 0),
	}
	groundTruth := []*domain.Entities{
		entitiesWith("4A", 1),
		entitiesWith("5", 1),
		entitiesWith("1", 0),
	}

	metrics := EvaluateExtraction(predicted, groundTruth)

	// Two pairs have codes on both sides; one matches.
	assert.InDelta(t, 0.5, metrics.BiradsAccuracy, 1e-9)
	// |1-1| + |2-1| + |0-0| over 3 pairs.
	assert.InDelta(t, 1.0/3.0, metrics.FindingsCountDiff, 1e-9)
	assert.Equal(t, 3, metrics.EvaluatedPairs)
}

func TestEvaluateExtraction_NoValidPairsIsNaN(t *testing.T) {
	metrics := EvaluateExtraction(
		[]*domain.Entities{entitiesWith("", 1)},
		[]*domain.Entities{entitiesWith("4A", 1)},
	)

	assert.True(t, math.IsNaN(metrics.BiradsAccuracy))
	assert.Equal(t, 1, metrics.EvaluatedPairs)
}

func TestEvaluateRecommendations(t *testing.T) {
	predicted := []*domain.RecommendationBundle{
		bundleWithBiopsy(true),  // TP
		bundleWithBiopsy(true),  // FP
		bundleWithBiopsy(false), // FN
		bundleWithBiopsy(false), // TN
	}
	groundTruth := []*domain.RecommendationBundle{
		bundleWithBiopsy(true),
		bundleWithBiopsy(false),
		bundleWithBiopsy(true),
		bundleWithBiopsy(false),
	}

	metrics := EvaluateRecommendations(predicted, groundTruth)

	assert.Equal(t, 1, metrics.TruePositive)
	assert.Equal(t, 1, metrics.FalsePositive)
	assert.Equal(t, 1, metrics.FalseNegative)
	assert.Equal(t, 1, metrics.TrueNegative)
	assert.InDelta(t, 0.5, metrics.BiopsyAccuracy, 1e-9)
	assert.InDelta(t, 0.5, metrics.BiopsyPrecision, 1e-9)
	assert.InDelta(t, 0.5, metrics.BiopsyRecall, 1e-9)
	assert.InDelta(t, 0.5, metrics.BiopsyF1, 1e-9)
}

func TestEvaluateRecommendations_ZeroDivision(t *testing.T) {
	// Nothing predicted, nothing true: precision, recall and F1 all hit
	// zero denominators.
	metrics := EvaluateRecommendations(
		[]*domain.RecommendationBundle{bundleWithBiopsy(false)},
		[]*domain.RecommendationBundle{bundleWithBiopsy(false)},
	)

	assert.InDelta(t, 1.0, metrics.BiopsyAccuracy, 1e-9)
	assert.Zero(t, metrics.BiopsyPrecision)
	assert.Zero(t, metrics.BiopsyRecall)
	assert.Zero(t, metrics.BiopsyF1)
}

func TestRecommendsBiopsy(t *testing.T) {
	assert.False(t, recommendsBiopsy(nil))
	assert.False(t, recommendsBiopsy(domain.NewRecommendationBundle()))

	b := domain.NewRecommendationBundle()
	b.ComplementaryExams = append(b.ComplementaryExams, domain.ExamRecommendation{Type: "IRM mammaire"})
	assert.False(t, recommendsBiopsy(b))

	b.ComplementaryExams = append(b.ComplementaryExams, domain.ExamRecommendation{Type: "BIOPSIE stéréotaxique"})
	assert.True(t, recommendsBiopsy(b))
}

func TestLoadDataset(t *testing.T) {
	reports, err := LoadDataset(filepath.Join("testdata", "example_reports.json"))
	require.NoError(t, err)
	require.Len(t, reports, 5)

	assert.Equal(t, "example001", reports[0].ID)
	assert.Equal(t, domain.ClassificationCode("4A"), reports[0].GroundTruth.Entities.BiradsClassification)
	require.NotNil(t, reports[0].GroundTruth.Recommendations)
	assert.NotEmpty(t, reports[0].Text)
}

func TestSaveDatasetRoundTrip(t *testing.T) {
	reports, err := LoadDataset(filepath.Join("testdata", "example_reports.json"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, SaveDataset(path, reports))

	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, reports, loaded)
}
