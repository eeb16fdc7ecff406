// Package tui provides an interactive terminal browser for stored memories.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Retrieval answers queries. Required.
	Retrieval driving.RetrievalService

	// Indexing deletes sessions and reports index stats. Optional.
	Indexing driving.IndexingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
