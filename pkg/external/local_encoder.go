// Package external provides the text-encoder implementations behind the
// similar-case search: a deterministic local encoder, an HTTP client for a
// remote embeddings service, and the Redis-backed embedding cache.
package external

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// DefaultEmbeddingDimension is the vector size of the local encoder.
const DefaultEmbeddingDimension = 384

// LocalEncoder produces reproducible pseudo-embeddings: the vector is drawn
// from a PRNG seeded with the sha256 of the text, then L2-normalized. The
// same text always yields the same vector, across processes, with no I/O —
// this keeps the similarity feature available offline.
type LocalEncoder struct {
	dimension int
}

// NewLocalEncoder creates a local encoder. A non-positive dimension falls
// back to DefaultEmbeddingDimension.
func NewLocalEncoder(dimension int) *LocalEncoder {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &LocalEncoder{dimension: dimension}
}

// Embed returns the deterministic embedding for the text.
func (e *LocalEncoder) Embed(_ context.Context, text string) ([]float64, error) {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float64, e.dimension)
	var norm float64
	for i := range vec {
		// Uniform in [-1, 1).
		vec[i] = rng.Float64()*2 - 1
		norm += vec[i] * vec[i]
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Dimension returns the vector size.
func (e *LocalEncoder) Dimension() int {
	return e.dimension
}

// Name identifies the encoder in cache keys and stats.
func (e *LocalEncoder) Name() string {
	return "local"
}
