package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SummaryRecord is a summarised conversation session.
// It is owned by the summarisation subsystem; the engine only reads it.
type SummaryRecord struct {
	// OwnerID is the user the session belongs to.
	OwnerID int64 `json:"owner_id"`

	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// SessionDate is the session day (YYMMDD). Optional.
	SessionDate SessionDate `json:"session_date,omitempty"`

	// Summary is the full summary text.
	Summary string `json:"summary"`

	// KeySentence is the most representative sentence.
	KeySentence string `json:"key_sentence"`

	// Keywords are the session keywords in extraction order.
	Keywords []string `json:"keywords"`

	// RawKeywords is the stored keyword payload. It is parsed with
	// ParseKeywords when Keywords is empty.
	RawKeywords string `json:"raw_keywords,omitempty"`

	// UpdatedAt is when the summary was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexResult reports what the indexing pipeline wrote for a session.
type IndexResult struct {
	// OwnerID and SessionID identify the indexed session.
	OwnerID   int64
	SessionID string

	// DocIDs is the canonical fragment ID set, in build order.
	DocIDs []string

	// Written counts fragments stored in both indexes.
	Written int

	// Failures lists fragment writes that did not succeed.
	Failures []FragmentFailure

	// Skipped lists fragments that were not built because their input was
	// malformed. Each wraps ErrMalformedFragment.
	Skipped []error
}

// FragmentFailure is a single failed fragment write.
type FragmentFailure struct {
	DocID  string
	Source Source
	Err    error
}

// Error implements error.
func (f FragmentFailure) Error() string {
	if f.DocID == "" {
		return fmt.Sprintf("%s: %v", f.Source, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Source, f.DocID, f.Err)
}

// Unwrap exposes the underlying error to errors.Is.
func (f FragmentFailure) Unwrap() error {
	return f.Err
}

// ParseKeywords reads a stored keyword payload. It accepts a JSON array,
// a comma separated list, or a single keyword. Blank entries are dropped.
func ParseKeywords(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, fmt.Errorf("%w: keywords: %v", ErrMalformedFragment, err)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			if k := strings.TrimSpace(fmt.Sprint(item)); k != "" {
				out = append(out, k)
			}
		}
		return out, nil
	}

	if strings.Contains(s, ",") {
		return CleanKeywords(strings.Split(s, ",")), nil
	}
	return []string{s}, nil
}

// CleanKeywords trims keywords and drops blanks, keeping order.
func CleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// EncodeKeywords renders keywords as the JSON array stored with a summary.
func EncodeKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return "[]"
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "[]"
	}
	return string(data)
}
