package domain

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
)

// FragmentType identifies which part of a session summary a fragment holds.
type FragmentType string

// Fragment types produced by the indexing pipeline.
const (
	// FragmentSummary is the full session summary.
	FragmentSummary FragmentType = "summary"

	// FragmentKeySentence is the one or two sentences that best capture the session.
	FragmentKeySentence FragmentType = "key_sentence"

	// FragmentKeywordsAll is every keyword of the session joined by newlines.
	FragmentKeywordsAll FragmentType = "keywords_all"

	// FragmentKeyword is a single keyword.
	FragmentKeyword FragmentType = "keyword"

	// FragmentUnknown is used for hits whose stored type cannot be recognised.
	FragmentUnknown FragmentType = "unknown"
)

// docIDHashWidth is the number of hex characters of the content hash kept in a doc ID.
const docIDHashWidth = 16

// IsValid returns true for the four types the pipeline writes.
func (t FragmentType) IsValid() bool {
	switch t {
	case FragmentSummary, FragmentKeySentence, FragmentKeywordsAll, FragmentKeyword:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t FragmentType) String() string {
	return string(t)
}

// NormalizeFragmentType maps the spellings found in stored metadata onto
// the canonical fragment types. Unrecognised values are kept lower-cased so
// they still participate in fusion with a neutral weight.
func NormalizeFragmentType(raw string) FragmentType {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch t {
	case "":
		return FragmentUnknown
	case "keywords":
		return FragmentKeywordsAll
	case "individual_keyword":
		return FragmentKeyword
	default:
		return FragmentType(t)
	}
}

// Fragment is one indexable unit of text derived from a session summary.
// Fragments are immutable; re-summarising a session replaces them.
type Fragment struct {
	// DocID is the deterministic identifier shared by both indexes.
	DocID string

	// Type is the part of the summary this fragment came from.
	Type FragmentType

	// Text is the indexed content. Never empty.
	Text string

	// OwnerID is the user the session belongs to.
	OwnerID int64

	// SessionID identifies the summarised conversation session.
	SessionID string

	// SessionDate is the session day as YYMMDD. Optional.
	SessionDate SessionDate

	// Metadata carries extra string attributes stored alongside the fragment.
	Metadata map[string]string
}

// NewFragment builds a fragment and derives its DocID.
func NewFragment(ownerID int64, sessionID string, date SessionDate, typ FragmentType, text string) Fragment {
	return Fragment{
		DocID:       BuildDocID(ownerID, sessionID, typ, text),
		Type:        typ,
		Text:        text,
		OwnerID:     ownerID,
		SessionID:   sessionID,
		SessionDate: date,
	}
}

// Validate checks the fragment can be written to an index.
func (f Fragment) Validate() error {
	if strings.TrimSpace(f.Text) == "" {
		return fmt.Errorf("%w: empty text for %s fragment", ErrMalformedFragment, f.Type)
	}
	if f.DocID == "" {
		return fmt.Errorf("%w: missing doc id", ErrMalformedFragment)
	}
	if f.SessionID == "" {
		return fmt.Errorf("%w: missing session id", ErrMalformedFragment)
	}
	return nil
}

// BuildDocID derives the identifier both indexes use for a fragment.
// The same (owner, session, type, text) always yields the same ID.
func BuildDocID(ownerID int64, sessionID string, typ FragmentType, text string) string {
	sum := sha1.Sum([]byte(text)) //nolint:gosec // see import
	return fmt.Sprintf("%d::%s::%s::%s", ownerID, sessionID, typ, hex.EncodeToString(sum[:])[:docIDHashWidth])
}
