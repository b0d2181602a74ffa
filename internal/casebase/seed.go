package casebase

import (
	"context"
	"fmt"

	"github.com/birads-report-server/internal/domain"
)

// SampleCases returns the built-in reference cases used to bootstrap an
// empty case base.
func SampleCases() []*CaseRecord {
	return []*CaseRecord{
		{
			ID:     "case001",
			Birads: "4A",
			Findings: []domain.Finding{
				{Type: "opacité nodulaire", SizeMM: 12, Location: "QSE sein droit"},
			},
			Treatment: "Biopsie sous guidage échographique",
			Result:    "Fibroadénome",
			FollowUp:  "Surveillance à 6 mois",
		},
		{
			ID:     "case002",
			Birads: "4A",
			Findings: []domain.Finding{
				{Type: "masse", SizeMM: 14, Location: "QSE sein droit"},
			},
			Treatment: "Biopsie sous guidage échographique",
			Result:    "Carcinome canalaire in situ",
			FollowUp:  "Chirurgie conservatrice + radiothérapie",
		},
		{
			ID:     "case003",
			Birads: "3",
			Findings: []domain.Finding{
				{Type: "opacité ronde", SizeMM: 8, Location: "QIE sein droit"},
			},
			Treatment: "Surveillance",
			Result:    "Stable",
			FollowUp:  "Contrôle à 6 mois sans changement",
		},
		{
			ID:     "case004",
			Birads: "5",
			Findings: []domain.Finding{
				{Type: "masse spiculée", SizeMM: 22, Location: "QSE sein gauche"},
				{Type: "adénopathie axillaire", SizeMM: 15, Location: "aisselle gauche"},
			},
			Treatment: "Biopsie + IRM",
			Result:    "Carcinome canalaire infiltrant",
			FollowUp:  "Chimiothérapie néoadjuvante puis chirurgie",
		},
		{
			ID:     "case005",
			Birads: "4C",
			Findings: []domain.Finding{
				{Type: "masse irrégulière", SizeMM: 8, Location: "rétroaréolaire sein gauche"},
				{Type: "adénopathie", SizeMM: 12, Location: "aisselle gauche"},
			},
			Treatment: "Biopsie",
			Result:    "Carcinome canalaire infiltrant",
			FollowUp:  "Mastectomie + curage axillaire + chimiothérapie",
			Notes:     "Patient masculin",
		},
	}
}

// SeedIfEmpty inserts the sample cases when the store holds no cases yet.
// It returns the number of cases inserted.
func SeedIfEmpty(ctx context.Context, store Store) (int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	for _, record := range SampleCases() {
		if err := store.Save(ctx, record); err != nil {
			return inserted, fmt.Errorf("failed to seed case %s: %w", record.ID, err)
		}
		inserted++
	}
	return inserted, nil
}
