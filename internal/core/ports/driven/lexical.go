package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// LexicalIndex provides keyword search over fragments.
// Backed by SQLite FTS5 with a trigram tokenizer, or by an in-memory bleve index.
type LexicalIndex interface {
	// Upsert replaces any fragment with the same DocID and indexes its text.
	// Delete and insert happen under the adapter's writer lock.
	Upsert(ctx context.Context, fragment domain.Fragment) error

	// DeleteBySession removes every fragment of a session.
	DeleteBySession(ctx context.Context, ownerID int64, sessionID string) error

	// Search returns up to topK hits for the owner, best first.
	// Ties keep insertion order. Rank is 1-based.
	Search(ctx context.Context, query string, topK int, ownerID int64) ([]domain.IndexHit, error)

	// Count returns the number of indexed fragments.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
