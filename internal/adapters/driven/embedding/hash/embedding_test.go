package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbed_UnitLength(t *testing.T) {
	s := NewEmbeddingService(0)
	vec, err := s.Embed(context.Background(), "여행용 보온병을 샀다")
	require.NoError(t, err)
	require.Len(t, vec, DefaultDimensions)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbed_Deterministic(t *testing.T) {
	s := NewEmbeddingService(64)
	a, err := s.Embed(context.Background(), "보온병")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "보온병")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_IgnoresCase(t *testing.T) {
	s := NewEmbeddingService(0)
	a, err := s.Embed(context.Background(), "Thermos Flask")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "thermos flask")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_SharedSubstringsAreCloser(t *testing.T) {
	s := NewEmbeddingService(0)
	ctx := context.Background()

	query, err := s.Embed(ctx, "보온병")
	require.NoError(t, err)
	related, err := s.Embed(ctx, "여행용 보온병을 새로 샀다")
	require.NoError(t, err)
	unrelated, err := s.Embed(ctx, "주말 등산 계획")
	require.NoError(t, err)

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestEmbed_EmptyText(t *testing.T) {
	s := NewEmbeddingService(0)
	_, err := s.Embed(context.Background(), "  \n ")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbed_Cancelled(t *testing.T) {
	s := NewEmbeddingService(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(32)
	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 32)

	_, err = s.EmbedBatch(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestMetadata(t *testing.T) {
	s := NewEmbeddingService(128)
	assert.Equal(t, 128, s.Dimensions())
	assert.Equal(t, ModelName, s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
