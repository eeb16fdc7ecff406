package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// emojiRanges covers emoticons, pictographs, transport and map symbols,
	// regional indicators and the misc symbols/dingbats block.
	emojiRanges = &unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		},
		R32: []unicode.Range32{
			{Lo: 0x1F1E0, Hi: 0x1F1FF, Stride: 1},
			{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
			{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
			{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		},
	}

	// queryTokenRe keeps runs of Latin letters and Hangul syllables.
	queryTokenRe = regexp.MustCompile(`[A-Za-z가-힣]+`)
)

// repeatedJamo lists the jamo that are stripped when typed twice or more
// in a row (laughter and crying).
const repeatedJamo = "ㅋㅎㅜㅠㅡ"

const variationSelector16 = '\uFE0F'

// NormalizeQuery cleans a chat message into a search query.
// It removes repeated laughter jamo, applies NFKC, lower-cases, removes
// emoji, and keeps only Latin and Hangul words separated by single spaces.
// Digits split words and are dropped.
func NormalizeQuery(q string) string {
	if q == "" {
		return ""
	}

	// NFKC rewrites compatibility jamo, so runs are collapsed first.
	s := collapseRepeatedJamo(q)
	s = strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
	s = strings.Map(func(r rune) rune {
		if r == variationSelector16 || unicode.Is(emojiRanges, r) {
			return ' '
		}
		return r
	}, s)

	return strings.Join(queryTokenRe.FindAllString(s, -1), " ")
}

// collapseRepeatedJamo replaces runs of two or more identical laughter or
// crying jamo with a single space.
func collapseRepeatedJamo(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(runes); {
		r := runes[i]
		j := i + 1
		for j < len(runes) && runes[j] == r {
			j++
		}
		if j-i >= 2 && strings.ContainsRune(repeatedJamo, r) {
			b.WriteRune(' ')
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(r)
			}
		}
		i = j
	}
	return b.String()
}

// CountTokens returns the number of whitespace separated tokens.
// Unicode spaces such as the ideographic space count as separators.
func CountTokens(q string) int {
	return len(strings.Fields(q))
}
