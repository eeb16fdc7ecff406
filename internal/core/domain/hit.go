package domain

// Source identifies which index produced a hit.
type Source string

// Index sources.
const (
	// SourceLexical is the keyword (BM25) index.
	SourceLexical Source = "lexical"

	// SourceSemantic is the embedding similarity index.
	SourceSemantic Source = "semantic"
)

// String returns the string representation.
func (s Source) String() string {
	return string(s)
}

// IndexHit is a single result from one index.
type IndexHit struct {
	// DocID is the fragment's shared identifier.
	DocID string

	// Type is the normalised fragment type.
	Type FragmentType

	// OwnerID is the owner the fragment belongs to.
	OwnerID int64

	// SessionID is the session the fragment was derived from.
	SessionID string

	// SessionDate is the session day, possibly empty.
	SessionDate SessionDate

	// Rank is the 1-based position in this index's result list.
	Rank int

	// Source is the index that produced the hit.
	Source Source

	// Score is the raw backend score (bm25 or cosine similarity).
	// Fusion only uses Rank.
	Score float64

	// Text is the matched fragment text.
	Text string
}
