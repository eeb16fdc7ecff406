package mcp

import (
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Retrieval answers memory queries.
	Retrieval driving.RetrievalService

	// Selection picks prompt context from ranked documents.
	// Optional; select_context is not registered without it.
	Selection driving.SelectionPolicy

	// Indexing writes and removes sessions.
	// Optional; index_session, delete_session and the stats resource need it.
	Indexing driving.IndexingService

	// Settings exposes the current configuration as a resource. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
