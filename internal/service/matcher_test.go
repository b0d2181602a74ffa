package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/domain"
)

// stubEncoder returns fixed vectors per text and counts calls, so cache
// behavior and ranking are both observable.
type stubEncoder struct {
	vectors map[string][]float64
	deflt   []float64
	calls   int
}

func (s *stubEncoder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls++
	for prefix, vec := range s.vectors {
		if strings.HasPrefix(text, prefix) {
			return vec, nil
		}
	}
	return s.deflt, nil
}

func (s *stubEncoder) Dimension() int { return 3 }
func (s *stubEncoder) Name() string   { return "stub" }

type memoryTier2 struct {
	entries map[string][]float64
	gets    int
	sets    int
}

func (m *memoryTier2) Get(_ context.Context, key string) ([]float64, bool, error) {
	m.gets++
	vec, ok := m.entries[key]
	return vec, ok, nil
}

func (m *memoryTier2) Set(_ context.Context, key string, vector []float64, _ time.Duration) error {
	m.sets++
	m.entries[key] = vector
	return nil
}

func newMatcherStore(t *testing.T) casebase.Store {
	t.Helper()
	store, err := casebase.NewSQLiteStore(filepath.Join(t.TempDir(), "cases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func queryEntities() *domain.Entities {
	entities := domain.NewEntities()
	entities.BiradsClassification = domain.BIRADS5
	entities.Findings = []domain.Finding{
		{Type: "masse spiculée", SizeMM: 22, Location: "QSE sein gauche"},
	}
	return entities
}

func TestMatcher_FindSimilarRanksByCosine(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &casebase.CaseRecord{
		ID: "near", Birads: "5",
		Findings: []domain.Finding{{Type: "masse spiculée", SizeMM: 22, Location: "QSE sein gauche"}},
	}))
	require.NoError(t, store.Save(ctx, &casebase.CaseRecord{
		ID: "far", Birads: "3",
		Findings: []domain.Finding{{Type: "opacité ronde", SizeMM: 8, Location: "QIE sein droit"}},
	}))

	encoder := &stubEncoder{
		vectors: map[string][]float64{
			"BI-RADS 5": {1, 0, 0},
			"BI-RADS 3": {0, 1, 0},
		},
		deflt: []float64{1, 0, 0},
	}

	matcher, err := NewMatcher(store, encoder, nil, discardLogger(), MatcherOptions{})
	require.NoError(t, err)

	results, err := matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "near", results[0].Case.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "far", results[1].Case.ID)
	assert.InDelta(t, 0.0, results[1].Similarity, 1e-9)
}

// failingEncoder always errors, exercising the encoder error path.
type failingEncoder struct{}

func (f *failingEncoder) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, errors.New("encoder offline")
}

func (f *failingEncoder) Dimension() int { return 3 }
func (f *failingEncoder) Name() string   { return "failing" }

func TestMatcher_EncoderErrorIsTyped(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &casebase.CaseRecord{
		ID: "case001", Birads: "4A",
		Findings: []domain.Finding{{Type: "opacité nodulaire", SizeMM: 12, Location: "QSE sein droit"}},
	}))

	matcher, err := NewMatcher(store, &failingEncoder{}, nil, discardLogger(), MatcherOptions{})
	require.NoError(t, err)

	_, err = matcher.FindSimilar(ctx, queryEntities(), 0)
	require.Error(t, err)

	var analysisErr *domain.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, domain.ErrEncoderError, analysisErr.Code)
	assert.Contains(t, err.Error(), "encoder offline")
}

func TestMatcher_TopNTruncation(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	_, err := casebase.SeedIfEmpty(ctx, store)
	require.NoError(t, err)

	encoder := &stubEncoder{deflt: []float64{1, 1, 1}}
	matcher, err := NewMatcher(store, encoder, nil, discardLogger(), MatcherOptions{TopN: 3})
	require.NoError(t, err)

	results, err := matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = matcher.FindSimilar(ctx, queryEntities(), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMatcher_EmptyInputs(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	encoder := &stubEncoder{deflt: []float64{1, 0, 0}}
	matcher, err := NewMatcher(store, encoder, nil, discardLogger(), MatcherOptions{})
	require.NoError(t, err)

	// Empty case base.
	results, err := matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	// No findings.
	_, err = casebase.SeedIfEmpty(ctx, store)
	require.NoError(t, err)
	results, err = matcher.FindSimilar(ctx, domain.NewEntities(), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, encoder.calls)
}

func TestMatcher_MemoryCacheAvoidsReencoding(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &casebase.CaseRecord{
		ID: "case001", Birads: "4A",
		Findings: []domain.Finding{{Type: "masse", SizeMM: 14, Location: "QSE sein droit"}},
	}))

	encoder := &stubEncoder{deflt: []float64{1, 0, 0}}
	matcher, err := NewMatcher(store, encoder, nil, discardLogger(), MatcherOptions{})
	require.NoError(t, err)

	_, err = matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	firstCalls := encoder.calls
	assert.Equal(t, 2, firstCalls) // query + one case

	_, err = matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	assert.Equal(t, firstCalls, encoder.calls)

	stats := matcher.Stats()
	assert.Equal(t, int64(2), stats.Queries)
	assert.Equal(t, int64(2), stats.MemoryHits)
	assert.Equal(t, int64(2), stats.MemoryMisses)
}

func TestMatcher_RedisTierPopulatesMemory(t *testing.T) {
	store := newMatcherStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &casebase.CaseRecord{
		ID: "case001", Birads: "4A",
		Findings: []domain.Finding{{Type: "masse", SizeMM: 14, Location: "QSE sein droit"}},
	}))

	tier2 := &memoryTier2{entries: map[string][]float64{}}
	encoder := &stubEncoder{deflt: []float64{1, 0, 0}}

	matcher, err := NewMatcher(store, encoder, tier2, discardLogger(), MatcherOptions{})
	require.NoError(t, err)

	_, err = matcher.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tier2.sets)

	// A fresh matcher with the same tier-2 cache never calls the encoder.
	fresh, err := NewMatcher(store, encoder, tier2, discardLogger(), MatcherOptions{})
	require.NoError(t, err)
	before := encoder.calls
	_, err = fresh.FindSimilar(ctx, queryEntities(), 0)
	require.NoError(t, err)
	assert.Equal(t, before, encoder.calls)
	assert.Equal(t, int64(2), fresh.Stats().RedisHits)
}

func TestCaseQueryText(t *testing.T) {
	findings := []domain.Finding{
		{Type: "masse spiculée", SizeMM: 22, Location: "QSE sein gauche"},
		{Type: "adénopathie axillaire", SizeMM: 15, Location: "aisselle gauche"},
	}

	assert.Equal(t,
		"BI-RADS 5 masse spiculée 22mm QSE sein gauche adénopathie axillaire 15mm aisselle gauche ",
		caseQueryText("5", findings))

	// Missing classification drops the prefix.
	assert.Equal(t,
		"masse spiculée 22mm QSE sein gauche ",
		caseQueryText("", findings[:1]))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"empty left", nil, []float64{1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1, 0, 5}, []float64{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.3))
	assert.Equal(t, 1.0, clamp01(1.7))
	assert.Equal(t, 0.5, clamp01(0.5))
}
