// Package knowledge holds the compiled-in BI-RADS guideline table and the
// stage-keyed treatment options used by the recommendation engine. The base
// is immutable: accessors return copies, never views into the table.
package knowledge

import (
	"sort"

	"github.com/birads-report-server/internal/domain"
)

// Base is the in-memory medical knowledge base. Construct it once with
// NewBase and share it freely; it is safe for concurrent readers.
type Base struct {
	guidelines map[domain.ClassificationCode]domain.Guideline
	treatments map[domain.DiseaseStage][]domain.TreatmentCategory
}

// NewBase builds the guideline and treatment tables.
func NewBase() *Base {
	return &Base{
		guidelines: map[domain.ClassificationCode]domain.Guideline{
			domain.BIRADS0: {
				Code:               domain.BIRADS0,
				Description:        "Évaluation incomplète",
				RecommendedActions: []string{"Examens d'imagerie supplémentaires requis"},
				FollowUpInterval:   "Immédiat",
				MalignancyRiskBand: "N/A",
			},
			domain.BIRADS1: {
				Code:               domain.BIRADS1,
				Description:        "Négatif",
				RecommendedActions: []string{"Dépistage de routine"},
				FollowUpInterval:   "1 an",
				MalignancyRiskBand: "< 2%",
			},
			domain.BIRADS2: {
				Code:               domain.BIRADS2,
				Description:        "Bénin",
				RecommendedActions: []string{"Dépistage de routine"},
				FollowUpInterval:   "1 an",
				MalignancyRiskBand: "< 2%",
			},
			domain.BIRADS3: {
				Code:               domain.BIRADS3,
				Description:        "Probablement bénin",
				RecommendedActions: []string{"Suivi à court terme"},
				FollowUpInterval:   "6 mois",
				MalignancyRiskBand: "> 2% mais ≤ 10%",
			},
			domain.BIRADS4A: {
				Code:        domain.BIRADS4A,
				Description: "Anomalie suspecte (faible suspicion)",
				RecommendedActions: []string{
					"Biopsie sous guidage échographique",
					"Biopsie sous guidage stéréotaxique",
				},
				FollowUpInterval:   "Biopsie dans les 2 semaines",
				MalignancyRiskBand: "> 10% mais ≤ 25%",
			},
			domain.BIRADS4B: {
				Code:        domain.BIRADS4B,
				Description: "Anomalie suspecte (suspicion modérée)",
				RecommendedActions: []string{
					"Biopsie sous guidage échographique",
					"Biopsie sous guidage stéréotaxique",
				},
				FollowUpInterval:   "Biopsie dans la semaine",
				MalignancyRiskBand: "> 25% mais ≤ 50%",
			},
			domain.BIRADS4C: {
				Code:        domain.BIRADS4C,
				Description: "Anomalie suspecte (suspicion élevée)",
				RecommendedActions: []string{
					"Biopsie sous guidage échographique",
					"Biopsie sous guidage stéréotaxique",
					"IRM mammaire",
				},
				FollowUpInterval:   "Biopsie immédiate",
				MalignancyRiskBand: "> 50% mais < 95%",
			},
			domain.BIRADS5: {
				Code:        domain.BIRADS5,
				Description: "Haute suspicion de malignité",
				RecommendedActions: []string{
					"Biopsie sous guidage échographique",
					"Biopsie sous guidage stéréotaxique",
					"IRM mammaire",
					"Consultation oncologique",
				},
				FollowUpInterval:   "Biopsie immédiate et consultation en oncologie",
				MalignancyRiskBand: "≥ 95%",
			},
			domain.BIRADS6: {
				Code:        domain.BIRADS6,
				Description: "Malignité prouvée par biopsie",
				RecommendedActions: []string{
					"Consultation oncologique",
					"IRM mammaire pour bilan d'extension",
					"Évaluation des ganglions axillaires",
				},
				FollowUpInterval:   "Traitement multidisciplinaire",
				MalignancyRiskBand: "100%",
			},
		},
		treatments: map[domain.DiseaseStage][]domain.TreatmentCategory{
			domain.StageEarly: {
				{Category: "surgery", Options: []string{"Tumorectomie", "Mastectomie"}},
				{Category: "radiotherapy", Options: []string{"Radiothérapie adjuvante"}},
				{Category: "chemotherapy", Options: []string{"Chimiothérapie adjuvante (selon facteurs de risque)"}},
				{Category: "hormone_therapy", Options: []string{"Tamoxifène", "Inhibiteurs d'aromatase"}},
				{Category: "targeted_therapy", Options: []string{"Trastuzumab (si HER2+)"}},
			},
			domain.StageLocallyAdvanced: {
				{Category: "chemotherapy", Options: []string{"Chimiothérapie néoadjuvante"}},
				{Category: "surgery", Options: []string{"Mastectomie avec curage axillaire"}},
				{Category: "radiotherapy", Options: []string{"Radiothérapie adjuvante"}},
				{Category: "hormone_therapy", Options: []string{"Tamoxifène", "Inhibiteurs d'aromatase"}},
				{Category: "targeted_therapy", Options: []string{"Trastuzumab (si HER2+)", "Pertuzumab (si HER2+)"}},
			},
		},
	}
}

// Lookup returns the guideline for a classification code. The second return
// is false when the code has no guideline entry; the extractor's permissive
// pattern can produce such codes and callers must handle them.
func (b *Base) Lookup(code domain.ClassificationCode) (domain.Guideline, bool) {
	g, ok := b.guidelines[code]
	if !ok {
		return domain.Guideline{}, false
	}
	g.RecommendedActions = append([]string(nil), g.RecommendedActions...)
	return g, true
}

// TreatmentOptions returns the ordered treatment categories for a disease
// stage, or nil for an unknown stage.
func (b *Base) TreatmentOptions(stage domain.DiseaseStage) []domain.TreatmentCategory {
	cats, ok := b.treatments[stage]
	if !ok {
		return nil
	}
	out := make([]domain.TreatmentCategory, len(cats))
	for i, c := range cats {
		out[i] = domain.TreatmentCategory{
			Category: c.Category,
			Options:  append([]string(nil), c.Options...),
		}
	}
	return out
}

// Codes returns every classification code with a guideline entry in scale
// order (0, 1, 2, 3, 4A, 4B, 4C, 5, 6).
func (b *Base) Codes() []domain.ClassificationCode {
	codes := make([]domain.ClassificationCode, 0, len(b.guidelines))
	for code := range b.guidelines {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// All returns every guideline in scale order.
func (b *Base) All() []domain.Guideline {
	codes := b.Codes()
	out := make([]domain.Guideline, 0, len(codes))
	for _, code := range codes {
		g, _ := b.Lookup(code)
		out = append(out, g)
	}
	return out
}
