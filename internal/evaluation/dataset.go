package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/birads-report-server/internal/domain"
)

// GroundTruth carries the labeled expectations for one report.
type GroundTruth struct {
	Entities        *domain.Entities             `json:"entities"`
	Recommendations *domain.RecommendationBundle `json:"recommendations"`
}

// LabeledReport is one evaluation sample: a raw report plus its labels.
type LabeledReport struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	GroundTruth GroundTruth `json:"ground_truth"`
}

// LoadDataset reads a labeled dataset from a JSON file. Samples missing
// ground-truth sections get empty structures so the metrics see zero
// findings rather than nil panics.
func LoadDataset(path string) ([]LabeledReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var reports []LabeledReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	for i := range reports {
		if reports[i].GroundTruth.Entities == nil {
			reports[i].GroundTruth.Entities = domain.NewEntities()
		}
		if reports[i].GroundTruth.Recommendations == nil {
			reports[i].GroundTruth.Recommendations = domain.NewRecommendationBundle()
		}
	}
	return reports, nil
}

// SaveDataset writes a labeled dataset to a JSON file.
func SaveDataset(path string, reports []LabeledReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}
