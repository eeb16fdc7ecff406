package domain

// DefaultRetrieveTopK is the number of ranked documents returned when a
// request does not ask for a specific count.
const DefaultRetrieveTopK = 12

// Bucket is a confidence label derived from evidence count.
// It is independent of the numeric score.
type Bucket string

// Confidence buckets, most trusted first.
const (
	BucketHigh   Bucket = "high"
	BucketMiddle Bucket = "middle"
	BucketLow    Bucket = "low"
)

// String returns the string representation.
func (b Bucket) String() string {
	return string(b)
}

// BucketThresholds are the minimum evidence counts for each bucket.
type BucketThresholds struct {
	// HighMin is the evidence count at or above which a document is high.
	HighMin int

	// MiddleMin is the evidence count at or above which a document is middle.
	MiddleMin int
}

// DefaultBucketThresholds returns high at >=3 and middle at 2.
func DefaultBucketThresholds() BucketThresholds {
	return BucketThresholds{HighMin: 3, MiddleMin: 2}
}

// Assign returns the bucket for an evidence count.
func (t BucketThresholds) Assign(evidence int) Bucket {
	switch {
	case evidence >= t.HighMin:
		return BucketHigh
	case evidence >= t.MiddleMin:
		return BucketMiddle
	default:
		return BucketLow
	}
}

// RetrieveRequest is the input to the retrieval engine.
type RetrieveRequest struct {
	// Query is the user's current message.
	Query string

	// OwnerID restricts retrieval to one user's memories.
	OwnerID int64

	// SessionDateHint is the date of the active session. Logged only.
	SessionDateHint SessionDate

	// TopK is the number of ranked documents to return (default 12).
	TopK int
}

// RankedDocument is one fused, scored and bucketed retrieval result.
type RankedDocument struct {
	DocID         string         `json:"doc_id"`
	SessionID     string         `json:"session_id"`
	OwnerID       int64          `json:"owner_id"`
	SessionDate   SessionDate    `json:"session_date,omitempty"`
	Score         float64        `json:"score"`
	EvidenceCount int            `json:"evidence_count"`
	Bucket        Bucket         `json:"bucket"`
	FragmentTypes []FragmentType `json:"fragment_types"`
	Sources       []Source       `json:"sources"`
}

// Selection is the subset of ranked documents chosen for a prompt,
// reported per bucket.
type Selection struct {
	High   []RankedDocument `json:"high"`
	Middle []RankedDocument `json:"middle"`
	Low    []RankedDocument `json:"low"`
	Picked []RankedDocument `json:"picked"`
}

// IndexStats reports how many fragments each index holds.
type IndexStats struct {
	Lexical  int `json:"lexical"`
	Semantic int `json:"semantic"`
}
