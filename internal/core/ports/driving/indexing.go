package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IndexingService turns session summaries into fragments and writes them
// to both indexes.
type IndexingService interface {
	// IndexSummary decomposes a summary record and upserts every fragment into
	// the lexical and semantic indexes. Per-fragment failures do not stop the
	// remaining fragments; they are reported in the result and joined into the
	// returned error.
	IndexSummary(ctx context.Context, record domain.SummaryRecord) (domain.IndexResult, error)

	// IndexSession looks up a stored summary and indexes it.
	// Returns domain.ErrNotFound when the session has no summary; nothing is written.
	IndexSession(ctx context.Context, ownerID int64, sessionID string) (domain.IndexResult, error)

	// DeleteSession removes a session's fragments from both indexes.
	DeleteSession(ctx context.Context, ownerID int64, sessionID string) error

	// Stats reports fragment counts per index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
