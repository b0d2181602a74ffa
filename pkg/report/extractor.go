package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/birads-report-server/internal/domain"
)

// Extractor derives structured entities from segmented report sections.
// Findings come from a two-tier matcher cascade: the three compound
// matchers always run and accumulate, and the context fallback runs only
// when they all come up empty.
type Extractor struct {
	compound []FindingMatcher
	fallback FindingMatcher
}

// NewExtractor creates an entity extractor with the default matcher cascade.
func NewExtractor() *Extractor {
	return &Extractor{
		compound: []FindingMatcher{
			matchTypeSizeLocation,
			matchTypeLocationSize,
			matchLocationTypeSize,
		},
		fallback: matchSizeWithContext,
	}
}

// Extract produces patient attributes, findings, the BI-RADS classification
// and explicit recommendation keywords. Absent attributes stay zero-valued;
// only an unconvertible numeric capture returns an error.
func (e *Extractor) Extract(sections domain.SectionSet) (*domain.Entities, error) {
	entities := domain.NewEntities()

	info, err := extractPatientInfo(sections.GeneralInfo)
	if err != nil {
		return nil, err
	}
	entities.PatientInfo = info

	// The classification can appear in any section; first mention wins.
	if m := biradsPattern.FindStringSubmatch(sections.AllText()); m != nil {
		entities.BiradsClassification = domain.ClassificationCode(m[1])
	}

	if sections.Observations != "" {
		findings, err := e.extractFindings(sections.Observations)
		if err != nil {
			return nil, err
		}
		entities.Findings = findings
	}

	entities.ExplicitRecommendations = extractExplicitRecommendations(sections.Conclusion)

	return entities, nil
}

// extractFindings runs the matcher cascade over the observations text.
func (e *Extractor) extractFindings(observations string) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, match := range e.compound {
		found, err := match(observations)
		if err != nil {
			return nil, err
		}
		findings = append(findings, found...)
	}
	if len(findings) > 0 {
		return findings, nil
	}
	return e.fallback(observations)
}

// extractPatientInfo scans the general-info block for patient attributes.
// Partial records are valid; every field is optional.
func extractPatientInfo(generalInfo string) (domain.PatientInfo, error) {
	var info domain.PatientInfo

	if m := agePattern.FindStringSubmatch(generalInfo); m != nil {
		age, err := strconv.Atoi(m[1])
		if err != nil {
			return domain.PatientInfo{}, fmt.Errorf("parsing patient age: %w", domain.NewValidationError("age", "cannot convert captured age to a number", m[1]))
		}
		info.Age = age
	}

	// The feminine marker is checked first and wins if both appear.
	if femalePattern.MatchString(generalInfo) {
		info.Gender = domain.GenderFemale
	} else if malePattern.MatchString(generalInfo) {
		info.Gender = domain.GenderMale
	}

	if m := examDatePattern.FindStringSubmatch(generalInfo); m != nil {
		info.ExamDate = m[1]
	}

	if m := examTypePattern.FindStringSubmatch(generalInfo); m != nil {
		info.ExamType = strings.TrimSpace(m[1])
	}

	return info, nil
}

// extractExplicitRecommendations flags recommendation keywords present in
// the conclusion. Checks run in a fixed order and accumulate independently,
// so a conclusion can trigger all four.
func extractExplicitRecommendations(conclusion string) []string {
	recommendations := []string{}
	if biopsyKeywordPattern.MatchString(conclusion) {
		recommendations = append(recommendations, domain.RecommendationBiopsy)
	}
	if followUpKeywordPattern.MatchString(conclusion) {
		recommendations = append(recommendations, domain.RecommendationFollowUp)
	}
	if ultrasoundKeywordPattern.MatchString(conclusion) {
		recommendations = append(recommendations, domain.RecommendationUltrasound)
	}
	if mriKeywordPattern.MatchString(conclusion) {
		recommendations = append(recommendations, domain.RecommendationMRI)
	}
	return recommendations
}
