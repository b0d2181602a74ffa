package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/domain"
)

// maxCaseScan bounds how many cases one query compares against.
const maxCaseScan = 10000

// SimilarCase pairs a reference case with its similarity to the query.
type SimilarCase struct {
	Case       *casebase.CaseRecord `json:"case"`
	Similarity float64              `json:"similarity"`
}

// EmbeddingCache is the tier-2 cache behind the in-process LRU. The Redis
// implementation lives in pkg/external; the matcher works without one.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vector []float64, ttl time.Duration) error
}

// MatcherStats tracks cache effectiveness and query volume.
type MatcherStats struct {
	Queries      int64     `json:"queries"`
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	Evictions    int64     `json:"evictions"`
	LastQuery    time.Time `json:"last_query"`
}

// MatcherOptions configures the case matcher.
type MatcherOptions struct {
	TopN      int
	CacheSize int
	CacheTTL  time.Duration
}

// Matcher ranks case-base entries against extracted report entities by
// cosine similarity of text embeddings. Embeddings are cached in two tiers:
// an in-process LRU for hot texts and an optional Redis cache shared across
// instances.
type Matcher struct {
	store       casebase.Store
	encoder     domain.TextEncoder
	memoryCache *lru.Cache
	redisCache  EmbeddingCache
	logger      *logrus.Logger
	topN        int
	cacheTTL    time.Duration

	statsMu sync.Mutex
	stats   MatcherStats
}

// NewMatcher creates a case matcher. redisCache may be nil.
func NewMatcher(store casebase.Store, encoder domain.TextEncoder, redisCache EmbeddingCache, logger *logrus.Logger, opts MatcherOptions) (*Matcher, error) {
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}

	memoryCache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &Matcher{
		store:       store,
		encoder:     encoder,
		memoryCache: memoryCache,
		redisCache:  redisCache,
		logger:      logger,
		topN:        opts.TopN,
		cacheTTL:    opts.CacheTTL,
	}, nil
}

// FindSimilar returns the topN cases most similar to the extracted
// entities. An empty case base or entities without findings yield an empty
// result with no error. A topN of zero or less uses the configured default.
func (m *Matcher) FindSimilar(ctx context.Context, entities *domain.Entities, topN int) ([]SimilarCase, error) {
	if topN <= 0 {
		topN = m.topN
	}
	if entities == nil || len(entities.Findings) == 0 {
		return nil, nil
	}

	cases, err := m.store.List(ctx, maxCaseScan, 0)
	if err != nil {
		return nil, domain.WrapAnalysisError(domain.ErrDatabaseError, "listing cases", err)
	}
	if len(cases) == 0 {
		return nil, nil
	}

	queryText := caseQueryText(string(entities.BiradsClassification), entities.Findings)
	queryVec, err := m.embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	results := make([]SimilarCase, 0, len(cases))
	for _, record := range cases {
		text := caseQueryText(record.Birads, record.Findings)
		vec, err := m.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, SimilarCase{
			Case:       record,
			Similarity: clamp01(cosineSimilarity(queryVec, vec)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topN {
		results = results[:topN]
	}

	m.statsMu.Lock()
	m.stats.Queries++
	m.stats.LastQuery = time.Now()
	m.statsMu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"candidates": len(cases),
		"returned":   len(results),
	}).Debug("Similar case search completed")

	return results, nil
}

// Stats returns a snapshot of the matcher statistics.
func (m *Matcher) Stats() MatcherStats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// embed resolves the embedding for a text through the cache tiers.
func (m *Matcher) embed(ctx context.Context, text string) ([]float64, error) {
	key := m.cacheKey(text)

	if cached, ok := m.memoryCache.Get(key); ok {
		m.statsMu.Lock()
		m.stats.MemoryHits++
		m.statsMu.Unlock()
		return cached.([]float64), nil
	}
	m.statsMu.Lock()
	m.stats.MemoryMisses++
	m.statsMu.Unlock()

	if m.redisCache != nil {
		vec, found, err := m.redisCache.Get(ctx, key)
		if err != nil {
			m.logger.WithError(err).Warn("Embedding cache read failed")
		} else if found {
			m.statsMu.Lock()
			m.stats.RedisHits++
			m.statsMu.Unlock()
			m.addToMemory(key, vec)
			return vec, nil
		}
	}

	vec, err := m.encoder.Embed(ctx, text)
	if err != nil {
		return nil, domain.WrapAnalysisError(domain.ErrEncoderError, "embedding case text", err)
	}

	m.addToMemory(key, vec)
	if m.redisCache != nil {
		if err := m.redisCache.Set(ctx, key, vec, m.cacheTTL); err != nil {
			m.logger.WithError(err).Warn("Embedding cache write failed")
		}
	}
	return vec, nil
}

func (m *Matcher) addToMemory(key string, vec []float64) {
	if evicted := m.memoryCache.Add(key, vec); evicted {
		m.statsMu.Lock()
		m.stats.Evictions++
		m.statsMu.Unlock()
	}
}

// cacheKey includes the encoder name so switching encoders never serves
// stale vectors.
func (m *Matcher) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(m.encoder.Name() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// caseQueryText builds the canonical textual form of a case: the
// classification when present, then each finding as "type sizemm location".
func caseQueryText(birads string, findings []domain.Finding) string {
	var sb strings.Builder
	if birads != "" {
		sb.WriteString("BI-RADS ")
		sb.WriteString(birads)
		sb.WriteString(" ")
	}
	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("%s %smm %s ", f.Type, formatSize(f.SizeMM), f.Location))
	}
	return sb.String()
}

// cosineSimilarity compares vectors over their shared dimensions. Empty or
// zero vectors yield 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
