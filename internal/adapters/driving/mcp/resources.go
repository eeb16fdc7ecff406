package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for recall resources.
	uriScheme = "recall://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Indexing != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "stats",
			Name:        "stats",
			Description: "Number of fragments in each index",
			MIMEType:    "application/json",
		}, s.handleStatsResource)
	}

	if s.ports.Settings != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "settings",
			Name:        "settings",
			Description: "Current fusion and index settings",
			MIMEType:    "application/json",
		}, s.handleSettingsResource)
	}
}

// handleStatsResource returns the fragment counts per index.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Indexing.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

// settingsInfo is the settings resource body. API keys are never exposed.
type settingsInfo struct {
	LexicalBackend    string  `json:"lexical_backend"`
	LexicalTopK       int     `json:"lexical_top_k"`
	SemanticTopK      int     `json:"semantic_top_k"`
	MinSimilarity     float64 `json:"min_similarity"`
	EmbeddingProvider string  `json:"embedding_provider"`
	EmbeddingModel    string  `json:"embedding_model,omitempty"`
	RRFK              int     `json:"rrf_k"`
	TopK              int     `json:"top_k"`
	NormalizeQuery    bool    `json:"normalize_query"`
	BucketHighMin     int     `json:"bucket_high_min"`
	BucketMiddleMin   int     `json:"bucket_middle_min"`
	SelectionNeed     int     `json:"selection_need"`
}

// handleSettingsResource returns the current settings without secrets.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	return jsonResource(req.Params.URI, settingsInfo{
		LexicalBackend:    settings.Lexical.Backend.String(),
		LexicalTopK:       settings.Lexical.TopK,
		SemanticTopK:      settings.Semantic.TopK,
		MinSimilarity:     settings.Semantic.MinSimilarity,
		EmbeddingProvider: settings.Embedding.Provider.String(),
		EmbeddingModel:    settings.Embedding.Model,
		RRFK:              settings.Fusion.RRFK,
		TopK:              settings.Fusion.TopK,
		NormalizeQuery:    settings.Fusion.NormalizeQuery,
		BucketHighMin:     settings.Buckets.HighMin,
		BucketMiddleMin:   settings.Buckets.MiddleMin,
		SelectionNeed:     settings.Selection.Need,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
