package domain

import "fmt"

const unknownDescription = "Unknown"

// LexicalBackend selects the keyword index implementation.
type LexicalBackend string

// Available lexical backends.
const (
	// LexicalBackendFTS5 is a persistent SQLite FTS5 trigram index.
	LexicalBackendFTS5 LexicalBackend = "fts5"

	// LexicalBackendBleve is an in-memory bleve index.
	LexicalBackendBleve LexicalBackend = "bleve"
)

// IsValid returns true if the backend is recognised.
func (b LexicalBackend) IsValid() bool {
	switch b {
	case LexicalBackendFTS5, LexicalBackendBleve:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b LexicalBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b LexicalBackend) Description() string {
	switch b {
	case LexicalBackendFTS5:
		return "SQLite FTS5 (trigram, persistent)"
	case LexicalBackendBleve:
		return "Bleve (n-gram, in-memory)"
	default:
		return unknownDescription
	}
}

// EmbeddingProvider identifies where vectors come from.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHash is the local feature-hashing embedder. No network.
	EmbeddingProviderHash EmbeddingProvider = "hash"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHash, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// StorageSettings holds on-disk locations.
type StorageSettings struct {
	// DataDir holds the lexical index, semantic index and summary databases.
	// Empty means ~/.recall/data.
	DataDir string
}

// LexicalSettings configures the keyword index.
type LexicalSettings struct {
	Backend LexicalBackend

	// TopK is how many hits retrieval asks the lexical index for.
	TopK int

	// ReadRetries is the number of attempts for a read hitting a locked database.
	ReadRetries int

	// RetryBackoffMS is the first retry delay; it doubles per attempt.
	RetryBackoffMS int
}

// SemanticSettings configures the vector index.
type SemanticSettings struct {
	// Collection is the vector collection name.
	Collection string

	// TopK is how many hits retrieval asks the semantic index for.
	TopK int

	// MinSimilarity drops hits below this cosine similarity. 0 disables the cut.
	MinSimilarity float64

	// Compress gzips the persisted collection files.
	Compress bool

	// InMemory keeps vectors in memory only.
	InMemory bool
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size of the hash embedder and the OpenAI v3 models.
	Dimensions int

	// RequestsPerSecond throttles calls to remote providers.
	RequestsPerSecond float64

	// CacheEntries bounds the query embedding cache. 0 disables it.
	CacheEntries int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// FusionSettings tunes the fusion engine.
type FusionSettings struct {
	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// TopK is the default number of ranked documents returned.
	TopK int

	// NormalizeQuery enables query clean-up before retrieval.
	NormalizeQuery bool

	// ReplaceSession deletes a session's fragments before re-indexing it.
	ReplaceSession bool
}

// SelectionSettings configures the prompt selection policy.
type SelectionSettings struct {
	// Need is how many documents are picked for a prompt.
	Need int
}

// Settings holds all application settings.
type Settings struct {
	Storage   StorageSettings
	Lexical   LexicalSettings
	Semantic  SemanticSettings
	Embedding EmbeddingSettings
	Fusion    FusionSettings
	Buckets   BucketThresholds
	Selection SelectionSettings
}

// DefaultSettings returns settings that work without any configuration file.
func DefaultSettings() Settings {
	return Settings{
		Lexical: LexicalSettings{
			Backend:        LexicalBackendFTS5,
			TopK:           200,
			ReadRetries:    3,
			RetryBackoffMS: 50,
		},
		Semantic: SemanticSettings{
			Collection: "session_fragments",
			TopK:       50,
		},
		Embedding: EmbeddingSettings{
			Provider:          EmbeddingProviderHash,
			Dimensions:        384,
			RequestsPerSecond: 10,
			CacheEntries:      4096,
		},
		Fusion: FusionSettings{
			RRFK:           60,
			TopK:           DefaultRetrieveTopK,
			NormalizeQuery: true,
			ReplaceSession: true,
		},
		Buckets: DefaultBucketThresholds(),
		Selection: SelectionSettings{
			Need: 4,
		},
	}
}

// Validate checks settings for values the engine cannot run with.
func (s Settings) Validate() error {
	if !s.Lexical.Backend.IsValid() {
		return fmt.Errorf("%w: lexical backend %q", ErrUnsupportedType, s.Lexical.Backend)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider)
	}
	if s.Lexical.TopK <= 0 || s.Semantic.TopK <= 0 || s.Fusion.TopK <= 0 {
		return fmt.Errorf("%w: top_k values must be positive", ErrInvalidInput)
	}
	if s.Fusion.RRFK <= 0 {
		return fmt.Errorf("%w: rrf_k must be positive", ErrInvalidInput)
	}
	if s.Buckets.HighMin <= s.Buckets.MiddleMin || s.Buckets.MiddleMin < 1 {
		return fmt.Errorf("%w: bucket thresholds need high > middle >= 1", ErrInvalidInput)
	}
	if s.Semantic.MinSimilarity < 0 || s.Semantic.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity must be within [0, 1]", ErrInvalidInput)
	}
	return nil
}

// DefaultEmbeddingModels returns default models for each remote provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderOllama: "nomic-embed-text",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}
