package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birads-report-server/internal/domain"
)

const benignReport = `
Date d'examen: 15/03/2024
Patiente: Femme, 48 ans
Type d'examen: Mammographie bilatérale

OBSERVATIONS:
Densité mammaire de type B (fibroglandulaire dispersé).
Sein droit: Présence d'une opacité ronde bien circonscrite dans le quadrant inféro-externe,
mesurant 8 mm. Pas de microcalcifications associées.
Sein gauche: Aucune anomalie décelée.
Absence d'adénopathie axillaire suspecte.

IMPRESSION:
Aspect probablement bénin dans le sein droit, classification BI-RADS 3.
Une surveillance à court terme est recommandée.

CONCLUSION:
Classification BI-RADS 3 (probablement bénin)
Contrôle mammographique dans 6 mois conseillé.
`

const highSuspicionReport = `
Date d'examen: 22/01/2024
Patiente: Femme, 62 ans
Type d'examen: Mammographie bilatérale

OBSERVATIONS:
Densité mammaire de type C (hétérogène).
Sein gauche: Présence d'une masse spiculée dans le quadrant supéro-externe,
mesurant 22 mm, avec des microcalcifications polymorphes associées.
Sein droit: Aucune anomalie décelée.
Présence d'une adénopathie axillaire gauche suspecte.

IMPRESSION:
Masse hautement suspecte dans le sein gauche, classification BI-RADS 5.
Une biopsie est nécessaire.

CONCLUSION:
Classification BI-RADS 5 (haute suspicion de malignité)
Une biopsie sous guidage échographique est nécessaire en urgence.
IRM mammaire recommandée pour bilan d'extension.
Évaluation des ganglions axillaires par échographie.
`

const normalReport = `
Date d'examen: 05/04/2024
Patiente: Femme, 35 ans
Type d'examen: Mammographie bilatérale

OBSERVATIONS:
Densité mammaire de type D (extrêmement dense).
Sein droit: Pas d'anomalie visible.
Sein gauche: Pas d'anomalie visible.
Absence d'adénopathie axillaire suspecte.

IMPRESSION:
Examen normal, classification BI-RADS 1.
Toutefois, sensibilité limitée en raison de la densité mammaire importante.

CONCLUSION:
Classification BI-RADS 1 (négatif)
Contrôle mammographique annuel recommandé.
Échographie complémentaire à considérer en raison de la densité mammaire.
`

const maleUnilateralReport = `
Date d'examen: 18/02/2024
Patient: Homme, 65 ans
Type d'examen: Mammographie unilatérale (sein gauche)

OBSERVATIONS:
Sein gauche: Présence d'une masse subcentimétrique rétroaréolaire, mesurant 8 mm,
à contours irréguliers, avec épaississement cutané en regard.
Pas de microcalcifications.
Présence d'une adénopathie axillaire gauche suspecte.

IMPRESSION:
Masse suspecte dans le sein gauche, évocatrice d'un cancer du sein chez l'homme.
Classification BI-RADS 4C.

CONCLUSION:
Classification BI-RADS 4C (suspicion élevée de malignité)
Biopsie sous guidage échographique nécessaire en priorité.
Bilan d'extension à prévoir.
`

func TestExtractorExampleReports(t *testing.T) {
	segmenter := NewSegmenter()
	extractor := NewExtractor()

	tests := []struct {
		name            string
		report          string
		age             int
		gender          domain.Gender
		examDate        string
		examType        string
		classification  domain.ClassificationCode
		findings        []domain.Finding
		recommendations []string
	}{
		{
			name:           "Bilateral exam with nodular opacity",
			report:         bilateralReport,
			age:            54,
			gender:         domain.GenderFemale,
			examDate:       "10/02/2024",
			examType:       "Mammographie bilatérale",
			classification: domain.BIRADS4A,
			findings: []domain.Finding{
				{Type: "opacité", SizeMM: 12, Location: "QSE"},
			},
			recommendations: []string{"biopsie", "suivi"},
		},
		{
			name:           "Probably benign round opacity",
			report:         benignReport,
			age:            48,
			gender:         domain.GenderFemale,
			examDate:       "15/03/2024",
			examType:       "Mammographie bilatérale",
			classification: domain.BIRADS3,
			findings: []domain.Finding{
				{Type: "calcification", SizeMM: 8, Location: "quadrant inféro"},
			},
			recommendations: []string{"suivi"},
		},
		{
			name:           "Highly suspicious spiculated mass",
			report:         highSuspicionReport,
			age:            62,
			gender:         domain.GenderFemale,
			examDate:       "22/01/2024",
			examType:       "Mammographie bilatérale",
			classification: domain.BIRADS5,
			findings: []domain.Finding{
				{Type: "calcification", SizeMM: 22, Location: "quadrant supéro"},
			},
			recommendations: []string{"biopsie", "échographie", "IRM"},
		},
		{
			name:            "Normal exam without findings",
			report:          normalReport,
			age:             35,
			gender:          domain.GenderFemale,
			examDate:        "05/04/2024",
			examType:        "Mammographie bilatérale",
			classification:  domain.BIRADS1,
			findings:        []domain.Finding{},
			recommendations: []string{"suivi", "échographie"},
		},
		{
			name:           "Male unilateral exam",
			report:         maleUnilateralReport,
			age:            65,
			gender:         domain.GenderMale,
			examDate:       "18/02/2024",
			examType:       "Mammographie unilatérale (sein gauche)",
			classification: domain.BIRADS4C,
			findings: []domain.Finding{
				{Type: "masse", SizeMM: 8, Location: "non précisée"},
			},
			recommendations: []string{"biopsie"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := segmenter.Segment(tt.report)
			entities, err := extractor.Extract(sections)
			require.NoError(t, err)

			assert.Equal(t, tt.age, entities.PatientInfo.Age)
			assert.Equal(t, tt.gender, entities.PatientInfo.Gender)
			assert.Equal(t, tt.examDate, entities.PatientInfo.ExamDate)
			assert.Equal(t, tt.examType, entities.PatientInfo.ExamType)
			assert.Equal(t, tt.classification, entities.BiradsClassification)
			assert.Equal(t, tt.findings, entities.Findings)
			assert.Equal(t, tt.recommendations, entities.ExplicitRecommendations)
		})
	}
}

func TestExtractorPatientInfo(t *testing.T) {
	tests := []struct {
		name        string
		generalInfo string
		expected    domain.PatientInfo
	}{
		{
			name:        "Complete header",
			generalInfo: "Date d'examen: 10/02/2024\nPatiente: Femme, 54 ans\nType d'examen: Mammographie bilatérale",
			expected: domain.PatientInfo{
				Age:      54,
				Gender:   domain.GenderFemale,
				ExamDate: "10/02/2024",
				ExamType: "Mammographie bilatérale",
			},
		},
		{
			name:        "Hyphenated age form",
			generalInfo: "Patiente de 48-ans",
			expected:    domain.PatientInfo{Age: 48, Gender: domain.GenderFemale},
		},
		{
			name:        "Masculine marker",
			generalInfo: "Patient: Homme, 65 ans",
			expected:    domain.PatientInfo{Age: 65, Gender: domain.GenderMale},
		},
		{
			name:        "Feminine marker wins over masculine",
			generalInfo: "Femme accompagnée d'un homme",
			expected:    domain.PatientInfo{Gender: domain.GenderFemale},
		},
		{
			name:        "Date label is case-sensitive",
			generalInfo: "date d'examen: 10/02/2024\nPatiente: Femme, 54 ans",
			expected:    domain.PatientInfo{Age: 54, Gender: domain.GenderFemale},
		},
		{
			name:        "Type label is case-sensitive",
			generalInfo: "type d'examen: Mammographie\nPatiente: Femme, 54 ans",
			expected:    domain.PatientInfo{Age: 54, Gender: domain.GenderFemale},
		},
		{
			name:        "Dashed date accepted",
			generalInfo: "Date: 5-4-24",
			expected:    domain.PatientInfo{ExamDate: "5-4-24"},
		},
		{
			name:        "Empty block yields empty record",
			generalInfo: "",
			expected:    domain.PatientInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := extractPatientInfo(tt.generalInfo)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, info)
		})
	}
}

func TestExtractorPatientAgeOverflow(t *testing.T) {
	extractor := NewExtractor()

	sections := domain.SectionSet{
		GeneralInfo: "Patiente: " + strings.Repeat("9", 25) + " ans",
	}

	_, err := extractor.Extract(sections)
	require.Error(t, err)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "age", validationErr.Field)
}

func TestExtractorClassificationCode(t *testing.T) {
	extractor := NewExtractor()

	tests := []struct {
		name     string
		sections domain.SectionSet
		expected domain.ClassificationCode
	}{
		{
			name:     "Code in conclusion only",
			sections: domain.SectionSet{Conclusion: "Classification BI-RADS 4B"},
			expected: domain.BIRADS4B,
		},
		{
			name:     "Missing hyphen tolerated",
			sections: domain.SectionSet{Impression: "BIRADS 2"},
			expected: domain.BIRADS2,
		},
		{
			name: "First mention wins across sections",
			sections: domain.SectionSet{
				GeneralInfo: "Antériorité BI-RADS 3",
				Conclusion:  "Classification BI-RADS 4A",
			},
			expected: domain.BIRADS3,
		},
		{
			name:     "Permissive letter grade on a code that has none",
			sections: domain.SectionSet{Conclusion: "Classification BI-RADS 1A"},
			expected: domain.ClassificationCode("1A"),
		},
		{
			name:     "Letter case recorded as written",
			sections: domain.SectionSet{Conclusion: "bi-rads 4c"},
			expected: domain.ClassificationCode("4c"),
		},
		{
			name:     "Absent code",
			sections: domain.SectionSet{Conclusion: "Examen sans particularité"},
			expected: domain.ClassificationCode(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := extractor.Extract(tt.sections)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entities.BiradsClassification)
		})
	}
}

func TestExtractorCompoundPatternsAccumulate(t *testing.T) {
	extractor := NewExtractor()

	// One mention satisfies two compound patterns and is kept twice;
	// duplicates are accepted, never collapsed.
	sections := domain.SectionSet{
		Observations: "Sein droit: QSE masse de 13 mm jouxtant le QSI.",
	}

	entities, err := extractor.Extract(sections)
	require.NoError(t, err)

	assert.Equal(t, []domain.Finding{
		{Type: "masse", SizeMM: 13, Location: "QS"},
		{Type: "masse", SizeMM: 13, Location: "QSE"},
	}, entities.Findings)
}

func TestExtractorFallbackOnlyWhenCompoundEmpty(t *testing.T) {
	extractor := NewExtractor()

	// The compound tier matches, so the fallback tier must not add its own
	// reading of the same mention.
	sections := domain.SectionSet{
		Observations: "Masse irrégulière de 22 mm au QSE du sein gauche.",
	}

	entities, err := extractor.Extract(sections)
	require.NoError(t, err)

	assert.Equal(t, []domain.Finding{
		{Type: "masse", SizeMM: 22, Location: "QS"},
	}, entities.Findings)
}

func TestExtractorFindingsOnlyFromObservations(t *testing.T) {
	extractor := NewExtractor()

	sections := domain.SectionSet{
		Impression: "Masse de 30 mm au QSE.",
		Conclusion: "Masse de 30 mm au QSE.",
	}

	entities, err := extractor.Extract(sections)
	require.NoError(t, err)

	assert.Empty(t, entities.Findings)
}

func TestExtractorEmptySectionsNeverError(t *testing.T) {
	extractor := NewExtractor()

	entities, err := extractor.Extract(domain.SectionSet{})
	require.NoError(t, err)
	require.NotNil(t, entities)

	assert.Equal(t, domain.PatientInfo{}, entities.PatientInfo)
	assert.Empty(t, entities.Findings)
	assert.Empty(t, entities.BiradsClassification)
	assert.Empty(t, entities.ExplicitRecommendations)
}

func TestExtractorExplicitRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		conclusion string
		expected   []string
	}{
		{
			name:       "Biopsy ultrasound and MRI without follow-up",
			conclusion: "Biopsie recommandée. Échographie et IRM à prévoir.",
			expected:   []string{"biopsie", "échographie", "IRM"},
		},
		{
			name:       "All four keywords in fixed order",
			conclusion: "IRM puis échographie, surveillance rapprochée et biopsie.",
			expected:   []string{"biopsie", "suivi", "échographie", "IRM"},
		},
		{
			name:       "Surveillance aliases map to suivi",
			conclusion: "Contrôle dans 6 mois.",
			expected:   []string{"suivi"},
		},
		{
			name:       "Adjective form does not trigger the ultrasound keyword",
			conclusion: "Biopsie sous guidage échographique conseillée.",
			expected:   []string{"biopsie"},
		},
		{
			name:       "Empty conclusion",
			conclusion: "",
			expected:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractExplicitRecommendations(tt.conclusion))
		})
	}
}

func TestExtractorIdempotent(t *testing.T) {
	segmenter := NewSegmenter()
	extractor := NewExtractor()

	sections := segmenter.Segment(highSuspicionReport)

	first, err := extractor.Extract(sections)
	require.NoError(t, err)
	second, err := extractor.Extract(sections)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
