package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// RetrievalService answers memory queries.
type RetrievalService interface {
	// Retrieve queries both indexes concurrently and fuses their rankings.
	// A single failing index is tolerated. When both fail the result is an
	// empty slice and an error wrapping domain.ErrRetrievalUnavailable.
	Retrieve(ctx context.Context, req domain.RetrieveRequest) ([]domain.RankedDocument, error)
}

// SelectionPolicy chooses the documents handed to prompt construction.
type SelectionPolicy interface {
	// Select picks up to need documents from a ranked list.
	Select(docs []domain.RankedDocument, need int) domain.Selection
}
