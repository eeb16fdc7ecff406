package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SemanticIndex provides cosine similarity search over fragment embeddings.
// Backed by chromem-go. The index embeds text itself through an EmbeddingService.
type SemanticIndex interface {
	// Upsert replaces any fragment with the same DocID.
	// Implemented as delete-by-id followed by insert.
	Upsert(ctx context.Context, fragment domain.Fragment) error

	// Add inserts a fragment whose DocID is known not to exist yet.
	Add(ctx context.Context, fragment domain.Fragment) error

	// DeleteBySession removes every fragment of a session.
	DeleteBySession(ctx context.Context, ownerID int64, sessionID string) error

	// SearchSimilar embeds query and returns up to topK hits for the owner,
	// ordered by descending similarity. Rank is 1-based.
	SearchSimilar(ctx context.Context, query string, topK int, ownerID int64) ([]domain.IndexHit, error)

	// Count returns the number of stored vectors.
	Count() int

	// Close releases resources.
	Close() error
}
