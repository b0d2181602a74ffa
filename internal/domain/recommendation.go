package domain

// Priority represents the urgency of a recommended complementary exam.
type Priority string

const (
	PriorityHigh   Priority = "haute"
	PriorityMedium Priority = "moyenne"
)

// DiseaseStage keys the treatment-option table.
type DiseaseStage string

const (
	StageEarly           DiseaseStage = "early_stage"
	StageLocallyAdvanced DiseaseStage = "locally_advanced"
)

// Guideline is the immutable record the Knowledge Base associates with a
// BI-RADS classification code.
type Guideline struct {
	Code               ClassificationCode `json:"code"`
	Description        string             `json:"description"`
	RecommendedActions []string           `json:"recommended_actions"`
	FollowUpInterval   string             `json:"follow_up_interval"`
	MalignancyRiskBand string             `json:"malignancy_risk_band"`
}

// TreatmentCategory groups treatment options under a named category
// (surgery, radiotherapy, ...). Categories keep the fixed order of the
// treatment table so bundles render deterministically.
type TreatmentCategory struct {
	Category string   `json:"category"`
	Options  []string `json:"options"`
}

// ExamRecommendation is a recommended complementary exam.
type ExamRecommendation struct {
	Type          string   `json:"type"`
	Priority      Priority `json:"priority"`
	Justification string   `json:"justification,omitempty"`
}

// TreatmentSuggestion is a provisional treatment category with its options.
type TreatmentSuggestion struct {
	Category string   `json:"category"`
	Options  []string `json:"options"`
	Note     string   `json:"note,omitempty"`
}

// FollowUpRecommendation is a recommended follow-up action with its delay.
type FollowUpRecommendation struct {
	Type    string `json:"type"`
	Delay   string `json:"delay"`
	Details string `json:"details,omitempty"`
}

// RecommendationBundle is the engine output: complementary exams, suggested
// treatments, follow-up entries, and a narrative justification.
type RecommendationBundle struct {
	ComplementaryExams  []ExamRecommendation     `json:"complementary_exams"`
	SuggestedTreatments []TreatmentSuggestion    `json:"suggested_treatments"`
	FollowUp            []FollowUpRecommendation `json:"follow_up"`
	Justification       string                   `json:"justification"`
}

// NewRecommendationBundle returns a bundle with list fields initialized so
// they serialize as [] rather than null.
func NewRecommendationBundle() *RecommendationBundle {
	return &RecommendationBundle{
		ComplementaryExams:  []ExamRecommendation{},
		SuggestedTreatments: []TreatmentSuggestion{},
		FollowUp:            []FollowUpRecommendation{},
	}
}
