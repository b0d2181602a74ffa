// Package service wires the report-analysis pipeline: recommendation
// synthesis against the knowledge base, the pipeline orchestrator, and the
// similar-case matcher.
package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/knowledge"
)

// Classification codes that mark recommended exams as high priority.
var highPriorityCodes = map[domain.ClassificationCode]bool{
	domain.BIRADS4C: true,
	domain.BIRADS5:  true,
}

// Codes for which a disease stage is determined.
var stagedCodes = map[domain.ClassificationCode]bool{
	domain.BIRADS4B: true,
	domain.BIRADS4C: true,
	domain.BIRADS5:  true,
	domain.BIRADS6:  true,
}

// Codes for which treatment options are enumerated.
var treatmentCodes = map[domain.ClassificationCode]bool{
	domain.BIRADS5: true,
	domain.BIRADS6: true,
}

const (
	treatmentNote = "À discuter en réunion de concertation pluridisciplinaire"
	caveatText    = "Les options de traitement proposées sont indicatives et devront être confirmées après évaluation histologique et discussion en RCP."
)

// EngineOptions tunes the recommendation engine.
type EngineOptions struct {
	// AggregateJustifications joins the per-finding justification sentences
	// instead of keeping only the last finding's sentence. The default
	// (false) carries the original last-write-wins behavior.
	AggregateJustifications bool
}

// Engine derives a recommendation bundle from extracted entities against
// the knowledge base. Deterministic; safe for concurrent use.
type Engine struct {
	kb        *knowledge.Base
	logger    *logrus.Logger
	aggregate bool
}

// NewEngine creates a recommendation engine.
func NewEngine(kb *knowledge.Base, logger *logrus.Logger, opts EngineOptions) *Engine {
	return &Engine{
		kb:        kb,
		logger:    logger,
		aggregate: opts.AggregateJustifications,
	}
}

// Recommend produces the recommendation bundle for the extracted entities.
// With a classification code known to the knowledge base, the guideline
// drives the output; without a code, each finding is assessed individually.
// A code present in the text but unknown to the knowledge base yields an
// empty bundle: the guideline branch has nothing to say and the per-finding
// branch is reserved for reports without a classification.
func (e *Engine) Recommend(entities *domain.Entities) *domain.RecommendationBundle {
	bundle := domain.NewRecommendationBundle()

	if entities.BiradsClassification != "" {
		guideline, ok := e.kb.Lookup(entities.BiradsClassification)
		if !ok {
			e.logger.WithField("birads", entities.BiradsClassification).
				Warn("Classification code has no guideline entry")
			return bundle
		}
		e.recommendFromGuideline(bundle, guideline, entities)
		return bundle
	}

	e.recommendFromFindings(bundle, entities.Findings)
	return bundle
}

// recommendFromGuideline fills the bundle from the guideline of a
// recognized classification code.
func (e *Engine) recommendFromGuideline(bundle *domain.RecommendationBundle, guideline domain.Guideline, entities *domain.Entities) {
	code := guideline.Code

	priority := domain.PriorityMedium
	if highPriorityCodes[code] {
		priority = domain.PriorityHigh
	}
	for _, action := range guideline.RecommendedActions {
		lower := strings.ToLower(action)
		if strings.Contains(lower, "biopsie") || strings.Contains(lower, "irm") || strings.Contains(lower, "examen") {
			bundle.ComplementaryExams = append(bundle.ComplementaryExams, domain.ExamRecommendation{
				Type:     action,
				Priority: priority,
			})
		}
	}

	bundle.FollowUp = append(bundle.FollowUp, domain.FollowUpRecommendation{
		Type:    "Suivi selon classification BI-RADS",
		Delay:   guideline.FollowUpInterval,
		Details: guideline.Description,
	})

	bundle.Justification = fmt.Sprintf("Classification BI-RADS %s (%s) avec risque de malignité %s. ",
		code, guideline.Description, guideline.MalignancyRiskBand)

	if !stagedCodes[code] {
		return
	}

	stage := determineStage(entities.Findings)
	e.logger.WithFields(logrus.Fields{
		"birads": code,
		"stage":  stage,
	}).Debug("Determined disease stage")

	if !treatmentCodes[code] {
		return
	}

	for _, category := range e.kb.TreatmentOptions(stage) {
		if len(category.Options) == 0 {
			continue
		}
		bundle.SuggestedTreatments = append(bundle.SuggestedTreatments, domain.TreatmentSuggestion{
			Category: category.Category,
			Options:  category.Options,
			Note:     treatmentNote,
		})
	}
	bundle.Justification += caveatText
}

// recommendFromFindings assesses each finding in extraction order. The
// bundle justification is overwritten per finding (last finding wins)
// unless aggregation is enabled.
func (e *Engine) recommendFromFindings(bundle *domain.RecommendationBundle, findings []domain.Finding) {
	if len(findings) == 0 {
		bundle.FollowUp = append(bundle.FollowUp, domain.FollowUpRecommendation{
			Type:  "Mammographie de dépistage",
			Delay: "1 an",
		})
		bundle.Justification = "Aucune anomalie significative détectée. Suivi standard recommandé."
		return
	}

	for _, finding := range findings {
		var sentence string
		if finding.SizeMM > 10 || strings.Contains(strings.ToLower(finding.Type), "suspect") {
			bundle.ComplementaryExams = append(bundle.ComplementaryExams, domain.ExamRecommendation{
				Type:          "Biopsie sous guidage échographique",
				Priority:      domain.PriorityMedium,
				Justification: fmt.Sprintf("Anomalie de %s mm", formatSize(finding.SizeMM)),
			})
			bundle.FollowUp = append(bundle.FollowUp, domain.FollowUpRecommendation{
				Type:  "Contrôle après biopsie",
				Delay: "1 mois après biopsie",
			})
			sentence = fmt.Sprintf("Anomalie de type %s de %s mm localisée au niveau %s. Une évaluation histologique est recommandée.",
				orDefault(finding.Type, "non précisé"), formatSize(finding.SizeMM), orDefault(finding.Location, "localisation non précisée"))
		} else {
			bundle.FollowUp = append(bundle.FollowUp, domain.FollowUpRecommendation{
				Type:  "Contrôle mammographique",
				Delay: "6 mois",
			})
			sentence = fmt.Sprintf("Anomalie de type %s de %s mm localisée au niveau %s. Les caractéristiques ne sont pas hautement suspectes, un suivi à court terme est recommandé.",
				orDefault(finding.Type, "non précisé"), formatSize(finding.SizeMM), orDefault(finding.Location, "localisation non précisée"))
		}

		if e.aggregate && bundle.Justification != "" {
			bundle.Justification += " " + sentence
		} else {
			bundle.Justification = sentence
		}
	}
}

// determineStage classifies the disease stage from finding sizes: any
// finding over 20mm means locally advanced.
func determineStage(findings []domain.Finding) domain.DiseaseStage {
	for _, finding := range findings {
		if finding.SizeMM > 20 {
			return domain.StageLocallyAdvanced
		}
	}
	return domain.StageEarly
}

// formatSize renders a size in its minimal decimal form (22 not 22.0).
func formatSize(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
