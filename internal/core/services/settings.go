package services

import (
	"fmt"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir = "storage.data_dir"

	keyLexicalBackend      = "lexical.backend"
	keyLexicalTopK         = "lexical.top_k"
	keyLexicalReadRetries  = "lexical.read_retries"
	keyLexicalRetryBackoff = "lexical.retry_backoff_ms"

	keySemanticCollection    = "semantic.collection"
	keySemanticTopK          = "semantic.top_k"
	keySemanticMinSimilarity = "semantic.min_similarity"
	keySemanticCompress      = "semantic.compress"
	keySemanticInMemory      = "semantic.in_memory"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyEmbedCache      = "embedding.cache_entries"

	keyFusionRRFK           = "fusion.rrf_k"
	keyFusionTopK           = "fusion.top_k"
	keyFusionNormalizeQuery = "fusion.normalize_query"
	keyFusionReplaceSession = "fusion.replace_session"

	keyBucketHighMin   = "bucket.high_min"
	keyBucketMiddleMin = "bucket.middle_min"

	keySelectionNeed = "selection.need"
)

// ConfigKeys lists every key SettingsService reads.
func ConfigKeys() []string {
	return []string{
		keyDataDir,
		keyLexicalBackend, keyLexicalTopK, keyLexicalReadRetries, keyLexicalRetryBackoff,
		keySemanticCollection, keySemanticTopK, keySemanticMinSimilarity, keySemanticCompress, keySemanticInMemory,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedDimensions, keyEmbedRPS, keyEmbedCache,
		keyFusionRRFK, keyFusionTopK, keyFusionNormalizeQuery, keyFusionReplaceSession,
		keyBucketHighMin, keyBucketMiddleMin,
		keySelectionNeed,
	}
}

// SettingsService maps flat configuration keys onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	provider := s.getProvider(d.Embedding.Provider)
	model := s.configStore.GetString(keyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.Settings{
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyDataDir),
		},
		Lexical: domain.LexicalSettings{
			Backend:        s.getBackend(d.Lexical.Backend),
			TopK:           s.getInt(keyLexicalTopK, d.Lexical.TopK),
			ReadRetries:    s.getInt(keyLexicalReadRetries, d.Lexical.ReadRetries),
			RetryBackoffMS: s.getInt(keyLexicalRetryBackoff, d.Lexical.RetryBackoffMS),
		},
		Semantic: domain.SemanticSettings{
			Collection:    s.getString(keySemanticCollection, d.Semantic.Collection),
			TopK:          s.getInt(keySemanticTopK, d.Semantic.TopK),
			MinSimilarity: s.getFloat(keySemanticMinSimilarity, d.Semantic.MinSimilarity),
			Compress:      s.getBool(keySemanticCompress, d.Semantic.Compress),
			InMemory:      s.getBool(keySemanticInMemory, d.Semantic.InMemory),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - adapters know their endpoint
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
			CacheEntries:      s.getIntAllowZero(keyEmbedCache, d.Embedding.CacheEntries),
		},
		Fusion: domain.FusionSettings{
			RRFK:           s.getInt(keyFusionRRFK, d.Fusion.RRFK),
			TopK:           s.getInt(keyFusionTopK, d.Fusion.TopK),
			NormalizeQuery: s.getBool(keyFusionNormalizeQuery, d.Fusion.NormalizeQuery),
			ReplaceSession: s.getBool(keyFusionReplaceSession, d.Fusion.ReplaceSession),
		},
		Buckets: domain.BucketThresholds{
			HighMin:   s.getInt(keyBucketHighMin, d.Buckets.HighMin),
			MiddleMin: s.getInt(keyBucketMiddleMin, d.Buckets.MiddleMin),
		},
		Selection: domain.SelectionSettings{
			Need: s.getInt(keySelectionNeed, d.Selection.Need),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyDataDir, settings.Storage.DataDir},
		{keyLexicalBackend, settings.Lexical.Backend.String()},
		{keyLexicalTopK, settings.Lexical.TopK},
		{keyLexicalReadRetries, settings.Lexical.ReadRetries},
		{keyLexicalRetryBackoff, settings.Lexical.RetryBackoffMS},
		{keySemanticCollection, settings.Semantic.Collection},
		{keySemanticTopK, settings.Semantic.TopK},
		{keySemanticMinSimilarity, settings.Semantic.MinSimilarity},
		{keySemanticCompress, settings.Semantic.Compress},
		{keySemanticInMemory, settings.Semantic.InMemory},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedCache, settings.Embedding.CacheEntries},
		{keyFusionRRFK, settings.Fusion.RRFK},
		{keyFusionTopK, settings.Fusion.TopK},
		{keyFusionNormalizeQuery, settings.Fusion.NormalizeQuery},
		{keyFusionReplaceSession, settings.Fusion.ReplaceSession},
		{keyBucketHighMin, settings.Buckets.HighMin},
		{keyBucketMiddleMin, settings.Buckets.MiddleMin},
		{keySelectionNeed, settings.Selection.Need},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set so an empty form never wipes one.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q requires an API key",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getBackend(defaultVal domain.LexicalBackend) domain.LexicalBackend {
	val := s.configStore.GetString(keyLexicalBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.LexicalBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.EmbeddingProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
