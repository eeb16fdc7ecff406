package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Lexical, settings.Lexical)
	assert.Equal(t, defaults.Semantic, settings.Semantic)
	assert.Equal(t, defaults.Fusion, settings.Fusion)
	assert.Equal(t, defaults.Buckets, settings.Buckets)
	assert.Equal(t, defaults.Selection, settings.Selection)
	assert.Equal(t, domain.EmbeddingProviderHash, settings.Embedding.Provider)
	assert.Equal(t, 384, settings.Embedding.Dimensions)
	assert.Equal(t, 4096, settings.Embedding.CacheEntries)
	assert.NoError(t, settings.Validate())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("lexical.backend", "bleve")
	_ = store.Set("lexical.top_k", int64(100))
	_ = store.Set("semantic.min_similarity", 0.25)
	_ = store.Set("semantic.in_memory", true)
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("embedding.cache_entries", int64(0))
	_ = store.Set("fusion.rrf_k", int64(30))
	_ = store.Set("fusion.normalize_query", false)
	_ = store.Set("bucket.high_min", int64(4))
	_ = store.Set("selection.need", int64(6))

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.LexicalBackendBleve, settings.Lexical.Backend)
	assert.Equal(t, 100, settings.Lexical.TopK)
	assert.InDelta(t, 0.25, settings.Semantic.MinSimilarity, 1e-12)
	assert.True(t, settings.Semantic.InMemory)
	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 0, settings.Embedding.CacheEntries)
	assert.Equal(t, 30, settings.Fusion.RRFK)
	assert.False(t, settings.Fusion.NormalizeQuery)
	assert.True(t, settings.Fusion.ReplaceSession)
	assert.Equal(t, 4, settings.Buckets.HighMin)
	assert.Equal(t, 6, settings.Selection.Need)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("lexical.backend", "xapian")
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("fusion.top_k", int64(-3))

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Lexical.Backend, settings.Lexical.Backend)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Fusion.TopK, settings.Fusion.TopK)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	settings.Storage.DataDir = "/tmp/recall"
	settings.Lexical.Backend = domain.LexicalBackendBleve
	settings.Semantic.MinSimilarity = 0.3
	settings.Embedding.Provider = domain.EmbeddingProviderOpenAI
	settings.Embedding.Model = "text-embedding-3-large"
	settings.Embedding.APIKey = "sk-test"
	settings.Fusion.ReplaceSession = false
	settings.Selection.Need = 5

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_SaveKeepsAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "sk-existing")
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "sk-existing", store.GetString("embedding.api_key"))
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.Validate())

	_ = store.Set("embedding.provider", "openai")
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)

	_ = store.Set("embedding.api_key", "sk-test")
	assert.NoError(t, service.Validate())

	_ = store.Set("bucket.high_min", int64(2))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}

func TestRetrievalConfigFromSettings(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Fusion.RRFK = 30
	settings.Lexical.TopK = 10

	cfg := RetrievalConfigFromSettings(settings)

	assert.Equal(t, 30, cfg.RRFK)
	assert.Equal(t, 10, cfg.LexicalTopK)
	assert.Equal(t, 50, cfg.SemanticTopK)
	assert.Equal(t, 12, cfg.DefaultTopK)
	assert.True(t, cfg.NormalizeQuery)
	assert.Len(t, cfg.Bands, 4)
}

func TestConfigKeys_AreReadBySettings(t *testing.T) {
	keys := ConfigKeys()
	assert.Contains(t, keys, "fusion.rrf_k")
	assert.Contains(t, keys, "embedding.api_key")
	assert.Contains(t, keys, "selection.need")

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}
}
