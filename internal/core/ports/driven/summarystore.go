package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SummaryStore provides access to persisted session summaries.
// The summarisation subsystem owns the records; the indexing pipeline reads them.
type SummaryStore interface {
	// Get returns the summary of a session.
	// Returns domain.ErrNotFound when no record exists.
	Get(ctx context.Context, ownerID int64, sessionID string) (*domain.SummaryRecord, error)

	// Save inserts or replaces a summary record.
	Save(ctx context.Context, record domain.SummaryRecord) error

	// Delete removes a summary record. Missing records are not an error.
	Delete(ctx context.Context, ownerID int64, sessionID string) error

	// List returns every summary of an owner, most recently updated first.
	List(ctx context.Context, ownerID int64) ([]domain.SummaryRecord, error)
}
