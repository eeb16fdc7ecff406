package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns counts", func(t *testing.T) {
		indexing := &mockIndexingService{stats: domain.IndexStats{Lexical: 10, Semantic: 9}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Indexing: indexing})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, readRequest("recall://stats"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "recall://stats", result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var stats domain.IndexStats
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &stats))
		assert.Equal(t, domain.IndexStats{Lexical: 10, Semantic: 9}, stats)
	})

	t.Run("returns error", func(t *testing.T) {
		indexing := &mockIndexingService{statsErr: errors.New("db closed")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Indexing: indexing})
		require.NoError(t, err)

		_, err = server.handleStatsResource(ctx, readRequest("recall://stats"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "db closed")
	})
}

func TestServer_handleSettingsResource(t *testing.T) {
	ctx := context.Background()
	settings := domain.DefaultSettings()
	settings.Embedding.Provider = domain.EmbeddingProviderOpenAI
	settings.Embedding.APIKey = "sk-secret-key-value"
	server, err := NewServer(&Ports{
		Retrieval: &mockRetrievalService{},
		Settings:  &mockSettingsService{settings: settings},
	})
	require.NoError(t, err)

	result, err := server.handleSettingsResource(ctx, readRequest("recall://settings"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	text := result.Contents[0].Text
	assert.NotContains(t, text, "sk-secret")
	assert.Contains(t, text, `"rrf_k": 60`)
	assert.Contains(t, text, `"embedding_provider": "openai"`)
	assert.Contains(t, text, `"lexical_backend": "fts5"`)
}
