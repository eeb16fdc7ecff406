package fts5

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// minTrigramRunes is the shortest token the trigram tokenizer can match.
const minTrigramRunes = 3

// minMixedLikeRunes is the shortest token sent to LIKE next to a MATCH
// expression. Single letters would match nearly every fragment.
const minMixedLikeRunes = 2

// ftsQuery is a user query rewritten for SQLite. Both parts may be set;
// MATCH hits rank ahead of LIKE hits.
type ftsQuery struct {
	// match is an FTS5 MATCH expression: quoted tokens joined with OR.
	match string

	// like holds the tokens too short for trigrams.
	like []string
}

func (q ftsQuery) empty() bool {
	return q.match == "" && len(q.like) == 0
}

// buildQuery turns free text into an OR of quoted phrases. Every token is
// quoted so FTS5 operators in user input are matched literally. Tokens too
// short for a trigram go to LIKE; next to a MATCH expression only those of
// at least minMixedLikeRunes are kept.
func buildQuery(query string) ftsQuery {
	var phrases, short []string
	seen := make(map[string]bool)

	for _, tok := range strings.Fields(query) {
		tok = strings.ToLower(tok)
		if seen[tok] {
			continue
		}
		seen[tok] = true

		if utf8.RuneCountInString(tok) >= minTrigramRunes {
			phrases = append(phrases, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
		} else {
			short = append(short, tok)
		}
	}

	if len(phrases) == 0 {
		return ftsQuery{like: short}
	}

	q := ftsQuery{match: strings.Join(phrases, " OR ")}
	for _, tok := range short {
		if utf8.RuneCountInString(tok) >= minMixedLikeRunes {
			q.like = append(q.like, tok)
		}
	}
	return q
}

// mergeHits appends the LIKE hits missing from the MATCH hits, re-ranks and
// truncates to topK.
func mergeHits(matched, liked []domain.IndexHit, topK int) []domain.IndexHit {
	seen := make(map[string]struct{}, len(matched))
	for _, h := range matched {
		seen[h.DocID] = struct{}{}
	}

	merged := matched
	for _, h := range liked {
		if len(merged) >= topK {
			break
		}
		if _, ok := seen[h.DocID]; ok {
			continue
		}
		seen[h.DocID] = struct{}{}
		h.Rank = len(merged) + 1
		merged = append(merged, h)
	}
	return merged
}

// escapeLike escapes LIKE wildcards with a backslash.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// countMatches counts how many tokens occur in text, ignoring ASCII case.
func countMatches(text string, tokens []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			n++
		}
	}
	return n
}
