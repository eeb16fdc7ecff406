// Package hash provides a local embedding service based on feature hashing.
// Character n-grams of each token are hashed into a fixed-size vector, so
// texts sharing substrings land close together. No model, no network.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches the small sentence-transformer models.
const DefaultDimensions = 384

// ModelName is reported for vectors produced by this service.
const ModelName = "hash-ngram-v1"

// gramWeights weights n-grams by length; longer grams carry more meaning.
var gramWeights = [...]float32{1: 0.5, 2: 1.0, 3: 1.5}

// EmbeddingService generates deterministic n-gram hash embeddings.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedder. dimensions <= 0 uses the default.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the unit-length feature vector of text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, s.dimensions)
	features := 0
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		runes := []rune(tok)
		for n := 1; n < len(gramWeights); n++ {
			for i := 0; i+n <= len(runes); i++ {
				vec[s.bucket(string(runes[i:i+n]))] += gramWeights[n]
				features++
			}
		}
	}
	if features == 0 {
		return nil, fmt.Errorf("%w: no features in text", domain.ErrEmbedding)
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in turn.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) bucket(feature string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	return int(h.Sum64() % uint64(s.dimensions))
}

// normalize scales vec to unit length in place.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
}
