package driven

import (
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Metrics records operational measurements.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveSearch records one backend query during retrieval.
	ObserveSearch(source domain.Source, elapsed time.Duration, hits int, err error)

	// ObserveRetrieve records a complete fused retrieval.
	ObserveRetrieve(elapsed time.Duration, results int, err error)

	// ObserveIndexed records fragment writes for one backend.
	ObserveIndexed(source domain.Source, written, failed int)
}
