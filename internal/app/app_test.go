package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/core/domain"
)

func newMemoryApp(t *testing.T) (*App, *memory.ConfigStore) {
	t.Helper()
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("lexical.backend", "bleve"))
	require.NoError(t, store.Set("semantic.in_memory", true))

	a, err := New(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, store
}

func thermosRecord() domain.SummaryRecord {
	return domain.SummaryRecord{
		OwnerID:     7,
		SessionID:   "240101_a",
		Summary:     "오늘 캠핑에 가져갈 보온병을 샀다",
		KeySentence: "보온병을 새로 샀다",
		Keywords:    []string{"보온병", "캠핑"},
	}
}

func assertThermosFound(t *testing.T, docs []domain.RankedDocument) {
	t.Helper()
	require.NotEmpty(t, docs)

	keywordID := domain.BuildDocID(7, "240101_a", domain.FragmentKeyword, "보온병")
	var found *domain.RankedDocument
	for i := range docs {
		assert.Equal(t, "240101_a", docs[i].SessionID)
		if docs[i].DocID == keywordID {
			found = &docs[i]
		}
	}
	require.NotNil(t, found, "keyword fragment retrieved")
	assert.Equal(t, []domain.Source{domain.SourceLexical, domain.SourceSemantic}, found.Sources)
	assert.Equal(t, 2, found.EvidenceCount)
	assert.Equal(t, domain.BucketMiddle, found.Bucket)
	assert.Equal(t, domain.SessionDate("240101"), found.SessionDate)
}

func TestApp_InMemoryIndexThenRetrieve(t *testing.T) {
	a, _ := newMemoryApp(t)
	ctx := context.Background()

	result, err := a.Indexing.IndexSummary(ctx, thermosRecord())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Written)

	docs, err := a.Retrieval.Retrieve(ctx, domain.RetrieveRequest{Query: "보온병", OwnerID: 7})
	require.NoError(t, err)
	assertThermosFound(t, docs)

	others, err := a.Retrieval.Retrieve(ctx, domain.RetrieveRequest{Query: "보온병", OwnerID: 8})
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestApp_PersistentIndexThenRetrieve(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("storage.data_dir", t.TempDir()))

	a, err := New(store)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Summaries.Save(ctx, thermosRecord()))

	result, err := a.Indexing.IndexSession(ctx, 7, "240101_a")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Written)

	docs, err := a.Retrieval.Retrieve(ctx, domain.RetrieveRequest{Query: "보온병", OwnerID: 7})
	require.NoError(t, err)
	assertThermosFound(t, docs)

	stats, err := a.Indexing.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{Lexical: 5, Semantic: 5}, stats)
}

func TestApp_IndexSessionNotFound(t *testing.T) {
	a, _ := newMemoryApp(t)

	_, err := a.Indexing.IndexSession(context.Background(), 7, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApp_DeleteSession(t *testing.T) {
	a, _ := newMemoryApp(t)
	ctx := context.Background()

	_, err := a.Indexing.IndexSummary(ctx, thermosRecord())
	require.NoError(t, err)
	require.NoError(t, a.Indexing.DeleteSession(ctx, 7, "240101_a"))

	stats, err := a.Indexing.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Lexical)
	assert.Zero(t, stats.Semantic)
}

func TestApp_Reload(t *testing.T) {
	a, store := newMemoryApp(t)
	assert.Equal(t, 12, a.Retrieval.Config().DefaultTopK)
	assert.Equal(t, 4, a.Current().Selection.Need)

	require.NoError(t, store.Set("fusion.top_k", 5))
	require.NoError(t, store.Set("selection.need", 2))
	require.NoError(t, a.Reload())

	assert.Equal(t, 5, a.Retrieval.Config().DefaultTopK)
	assert.Equal(t, 2, a.Current().Selection.Need)
}

func TestApp_ReloadRejectsInvalidSettings(t *testing.T) {
	a, store := newMemoryApp(t)

	require.NoError(t, store.Set("bucket.high_min", 2))
	require.NoError(t, store.Set("bucket.middle_min", 2))

	assert.ErrorIs(t, a.Reload(), domain.ErrInvalidInput)
	assert.Equal(t, domain.DefaultBucketThresholds(), a.Retrieval.Config().Buckets)
}

func TestApp_SelectUsesConfiguredNeed(t *testing.T) {
	a, store := newMemoryApp(t)
	require.NoError(t, store.Set("selection.need", 1))
	require.NoError(t, a.Reload())

	docs := []domain.RankedDocument{
		{DocID: "a", Score: 0.3, Bucket: domain.BucketLow},
		{DocID: "b", Score: 0.2, Bucket: domain.BucketLow},
	}
	sel := a.Select(docs, 0)
	require.Len(t, sel.Picked, 1)
	assert.Equal(t, "a", sel.Picked[0].DocID)
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("lexical.backend", "bleve"))
	require.NoError(t, store.Set("semantic.in_memory", true))
	require.NoError(t, store.Set("semantic.min_similarity", 2.0))

	_, err := New(store)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewEmbedder(t *testing.T) {
	t.Run("hash with cache", func(t *testing.T) {
		e, err := NewEmbedder(domain.EmbeddingSettings{Provider: domain.EmbeddingProviderHash, Dimensions: 64, CacheEntries: 10})
		require.NoError(t, err)
		defer e.Close()
		assert.Equal(t, 64, e.Dimensions())
	})

	t.Run("openai without key", func(t *testing.T) {
		_, err := NewEmbedder(domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOpenAI})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedder(domain.EmbeddingSettings{Provider: "word2vec"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})
}

func TestEphemeral(t *testing.T) {
	s := domain.DefaultSettings()
	assert.False(t, Ephemeral(s))

	s.Lexical.Backend = domain.LexicalBackendBleve
	s.Semantic.InMemory = true
	assert.True(t, Ephemeral(s))
}
