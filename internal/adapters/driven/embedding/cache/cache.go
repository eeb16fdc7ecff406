// Package cache memoises query embeddings in front of another EmbeddingService.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService serves repeated texts from a bounded ristretto cache.
// Each entry costs 1, so maxEntries bounds the number of vectors held.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *ristretto.Cache
}

// New wraps inner with a cache of at most maxEntries vectors.
func New(inner driven.EmbeddingService, maxEntries int) (*EmbeddingService, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &EmbeddingService{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)
	if vec, ok := s.get(key); ok {
		logger.Debug("embedding cache hit (%d chars)", len(text))
		return vec, nil
	}

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, clone(vec), 1)
	return vec, nil
}

// EmbedBatch serves hits from the cache and embeds the misses in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int

	for i, text := range texts {
		if vec, ok := s.get(s.key(text)); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := s.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingAt[j]] = vec
		s.cache.Set(s.key(missing[j]), clone(vec), 1)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the wrapped model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close stops the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Close()
	return s.inner.Close()
}

// key scopes entries by model so a provider switch never serves stale vectors.
func (s *EmbeddingService) key(text string) string {
	return s.inner.ModelName() + "\x00" + text
}

func (s *EmbeddingService) get(key string) ([]float32, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return clone(vec), true
}

func clone(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
