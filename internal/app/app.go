// Package app assembles the engine from settings: it picks the lexical and
// semantic backends, the embedding provider and the summary store, and
// connects them to the core services.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/openai"
	lexbleve "github.com/custodia-labs/recall/internal/adapters/driven/lexical/bleve"
	"github.com/custodia-labs/recall/internal/adapters/driven/lexical/fts5"
	"github.com/custodia-labs/recall/internal/adapters/driven/metrics/prom"
	"github.com/custodia-labs/recall/internal/adapters/driven/semantic/chromem"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/services"
	"github.com/custodia-labs/recall/internal/logger"
)

// App holds the wired engine. Close releases every adapter it opened.
type App struct {
	Settings       *services.SettingsService
	Indexing       *services.IndexingService
	Retrieval      *services.RetrievalService
	Selection      services.BucketQuotaPolicy
	Summaries      driven.SummaryStore
	Metrics        *prom.Recorder
	EmbeddingModel string

	mu      sync.RWMutex
	current domain.Settings
	backend domain.LexicalBackend
	closers []func() error
}

// New reads settings from configStore and opens every adapter they name.
func New(configStore driven.ConfigStore) (*App, error) {
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	a := &App{
		Settings:  settingsService,
		Selection: services.DefaultBucketQuotaPolicy(),
		Metrics:   prom.New(),
	}
	if err := a.open(*settings); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(s domain.Settings) error {
	embedder, err := NewEmbedder(s.Embedding)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, embedder.Close)

	lexical, err := NewLexicalIndex(s)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, lexical.Close)

	semantic, err := chromem.New(chromem.Config{
		DataDir:       s.Storage.DataDir,
		Collection:    s.Semantic.Collection,
		InMemory:      s.Semantic.InMemory,
		Compress:      s.Semantic.Compress,
		MinSimilarity: s.Semantic.MinSimilarity,
	}, embedder)
	if err != nil {
		return fmt.Errorf("opening semantic index: %w", err)
	}
	a.closers = append(a.closers, semantic.Close)

	summaries, err := a.openSummaries(s)
	if err != nil {
		return err
	}
	a.Summaries = summaries

	a.Indexing = services.NewIndexingService(lexical, semantic, summaries)
	a.Indexing.SetMetrics(a.Metrics)

	a.Retrieval = services.NewRetrievalService(lexical, semantic, services.RetrievalConfigFromSettings(s))
	a.Retrieval.SetMetrics(a.Metrics)

	a.apply(s)
	a.backend = s.Lexical.Backend
	a.EmbeddingModel = embedder.ModelName()

	logger.Debug("recall: lexical=%s semantic=%s embedding=%s data_dir=%q",
		s.Lexical.Backend, s.Semantic.Collection, embedder.ModelName(), s.Storage.DataDir)
	return nil
}

// openSummaries keeps summaries in memory when both indexes are in memory.
func (a *App) openSummaries(s domain.Settings) (driven.SummaryStore, error) {
	if Ephemeral(s) {
		return memory.NewSummaryStore(), nil
	}
	store, err := sqlite.NewStore(s.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening summary store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store.SummaryStore(), nil
}

// Reload re-reads settings and applies the ones that can change while
// running: fusion tuning, bucket thresholds, selection need and the
// replace-session switch. Backend choices need a restart.
func (a *App) Reload() error {
	s, err := a.Settings.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Lexical.Backend != a.backend {
		logger.Warn("lexical backend change to %s takes effect after restart", s.Lexical.Backend)
	}
	a.apply(*s)
	return nil
}

func (a *App) apply(s domain.Settings) {
	a.Retrieval.UpdateConfig(services.RetrievalConfigFromSettings(s))
	a.Indexing.SetReplaceSession(s.Fusion.ReplaceSession)

	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
}

// Current returns the settings last applied.
func (a *App) Current() domain.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Select applies the selection policy with the configured need when need
// is not positive.
func (a *App) Select(docs []domain.RankedDocument, need int) domain.Selection {
	if need <= 0 {
		need = a.Current().Selection.Need
	}
	return a.Selection.Select(docs, need)
}

// Close releases adapters in reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Ephemeral reports whether nothing is written to disk.
func Ephemeral(s domain.Settings) bool {
	return s.Lexical.Backend == domain.LexicalBackendBleve && s.Semantic.InMemory
}

// NewLexicalIndex opens the configured lexical backend.
func NewLexicalIndex(s domain.Settings) (driven.LexicalIndex, error) {
	switch s.Lexical.Backend {
	case domain.LexicalBackendBleve:
		ix, err := lexbleve.New()
		if err != nil {
			return nil, fmt.Errorf("opening bleve index: %w", err)
		}
		return ix, nil
	case domain.LexicalBackendFTS5, "":
		ix, err := fts5.New(fts5.Config{
			DataDir:      s.Storage.DataDir,
			ReadRetries:  s.Lexical.ReadRetries,
			RetryBackoff: time.Duration(s.Lexical.RetryBackoffMS) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("opening fts5 index: %w", err)
		}
		return ix, nil
	default:
		return nil, fmt.Errorf("%w: lexical backend %q", domain.ErrUnsupportedType, s.Lexical.Backend)
	}
}

// NewEmbedder creates the configured embedding provider, wrapped in a cache
// when cache entries are enabled.
func NewEmbedder(s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	var embedder driven.EmbeddingService
	switch s.Provider {
	case domain.EmbeddingProviderHash, "":
		embedder = hash.NewEmbeddingService(s.Dimensions)
	case domain.EmbeddingProviderOllama:
		embedder = ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           s.BaseURL,
			Model:             s.Model,
			RequestsPerSecond: s.RequestsPerSecond,
		})
	case domain.EmbeddingProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            s.APIKey,
			BaseURL:           s.BaseURL,
			Model:             s.Model,
			Dimensions:        s.Dimensions,
			RequestsPerSecond: s.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		embedder = svc
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, s.Provider)
	}

	if s.CacheEntries <= 0 {
		return embedder, nil
	}
	cached, err := cache.New(embedder, s.CacheEntries)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return cached, nil
}
