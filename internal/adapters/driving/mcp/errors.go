// Package mcp provides an MCP (Model Context Protocol) server adapter for recall.
// It lets assistants retrieve long-term memories and index finished sessions.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
