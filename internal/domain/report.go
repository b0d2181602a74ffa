package domain

import (
	"strings"
)

// Section names recognized by the segmenter.
const (
	SectionGeneralInfo  = "general_info"
	SectionObservations = "observations"
	SectionImpression   = "impression"
	SectionConclusion   = "conclusion"
)

// SectionSet holds the four named sections of a mammography report.
// Every field is always populated by the segmenter; a missing boundary
// label yields an empty string, never an error.
type SectionSet struct {
	GeneralInfo  string `json:"general_info"`
	Observations string `json:"observations"`
	Impression   string `json:"impression"`
	Conclusion   string `json:"conclusion"`
}

// AllText concatenates the four sections with single spaces in their fixed
// order (general info, observations, impression, conclusion). Classification
// lookup scans this concatenation so a BI-RADS mention in any section wins.
func (s SectionSet) AllText() string {
	return strings.Join([]string{s.GeneralInfo, s.Observations, s.Impression, s.Conclusion}, " ")
}

// Gender represents the patient gender extracted from the report header.
type Gender string

const (
	GenderFemale Gender = "F"
	GenderMale   Gender = "M"
)

// PatientInfo represents patient attributes found in the general-info block.
// Every field is optional; partial records are valid.
type PatientInfo struct {
	Age      int    `json:"age,omitempty"`
	Gender   Gender `json:"gender,omitempty"`
	ExamDate string `json:"exam_date,omitempty"`
	ExamType string `json:"exam_type,omitempty"`
}

// Finding represents a single described anomaly with its size and location.
// Findings are extracted independently and deliberately not deduplicated: a
// mention matched by two patterns yields two findings.
type Finding struct {
	Type     string  `json:"type"`
	SizeMM   float64 `json:"size_mm"`
	Location string  `json:"location"`
}

// ClassificationCode is a BI-RADS classification code. The extraction
// pattern is permissive (an optional trailing letter is accepted after any
// digit), so values outside the canonical set can occur; Valid reports
// membership in the canonical scale.
type ClassificationCode string

const (
	BIRADS0  ClassificationCode = "0"
	BIRADS1  ClassificationCode = "1"
	BIRADS2  ClassificationCode = "2"
	BIRADS3  ClassificationCode = "3"
	BIRADS4A ClassificationCode = "4A"
	BIRADS4B ClassificationCode = "4B"
	BIRADS4C ClassificationCode = "4C"
	BIRADS5  ClassificationCode = "5"
	BIRADS6  ClassificationCode = "6"
)

// Valid reports whether the code belongs to the canonical BI-RADS scale.
func (c ClassificationCode) Valid() bool {
	switch c {
	case BIRADS0, BIRADS1, BIRADS2, BIRADS3, BIRADS4A, BIRADS4B, BIRADS4C, BIRADS5, BIRADS6:
		return true
	}
	return false
}

// Explicit recommendation keywords scanned from the conclusion section.
const (
	RecommendationBiopsy     = "biopsie"
	RecommendationFollowUp   = "suivi"
	RecommendationUltrasound = "échographie"
	RecommendationMRI        = "IRM"
)

// Entities aggregates everything the extractor derives from a report.
type Entities struct {
	PatientInfo             PatientInfo        `json:"patient_info"`
	Findings                []Finding          `json:"findings"`
	BiradsClassification    ClassificationCode `json:"birads_classification,omitempty"`
	ExplicitRecommendations []string           `json:"explicit_recommendations"`
}

// NewEntities returns an Entities with list fields initialized so they
// serialize as [] rather than null.
func NewEntities() *Entities {
	return &Entities{
		Findings:                []Finding{},
		ExplicitRecommendations: []string{},
	}
}

// HasFindings reports whether at least one finding was extracted.
func (e *Entities) HasFindings() bool {
	return e != nil && len(e.Findings) > 0
}
