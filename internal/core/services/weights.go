package services

import "github.com/custodia-labs/recall/internal/core/domain"

// defaultTypeWeight applies to fragment types missing from a band.
const defaultTypeWeight = 1.0

// WeightBand holds the fusion weights for queries up to MaxTokens tokens.
type WeightBand struct {
	// Name labels the band in logs.
	Name string

	// MaxTokens is the inclusive upper bound. Zero or less means unbounded.
	MaxTokens int

	// Index weights each backend.
	Index map[domain.Source]float64

	// Types weights each fragment type.
	Types map[domain.FragmentType]float64
}

// IndexWeight returns the weight of a backend. Unknown backends weigh 0.
func (b WeightBand) IndexWeight(source domain.Source) float64 {
	return b.Index[source]
}

// TypeWeight returns the weight of a fragment type. Unknown types weigh 1.
func (b WeightBand) TypeWeight(t domain.FragmentType) float64 {
	if w, ok := b.Types[t]; ok {
		return w
	}
	return defaultTypeWeight
}

// DefaultWeightBands returns the four query length bands.
// Short queries lean on lexical keyword hits; long queries lean on
// semantic matches against whole summaries.
func DefaultWeightBands() []WeightBand {
	return []WeightBand{
		newBand("short", 2, 0.75, 0.25, 0.3, 0.4, 0.7, 1.0),
		newBand("medium", 6, 0.60, 0.40, 0.5, 0.6, 0.8, 0.9),
		newBand("long", 20, 0.45, 0.55, 0.8, 0.9, 0.6, 0.4),
		newBand("very_long", 0, 0.30, 0.70, 1.0, 0.8, 0.5, 0.2),
	}
}

func newBand(name string, maxTokens int, lexical, semantic, summary, keySentence, keywordsAll, keyword float64) WeightBand {
	return WeightBand{
		Name:      name,
		MaxTokens: maxTokens,
		Index: map[domain.Source]float64{
			domain.SourceLexical:  lexical,
			domain.SourceSemantic: semantic,
		},
		Types: map[domain.FragmentType]float64{
			domain.FragmentSummary:     summary,
			domain.FragmentKeySentence: keySentence,
			domain.FragmentKeywordsAll: keywordsAll,
			domain.FragmentKeyword:     keyword,
		},
	}
}

// SelectBand returns the first band whose bound covers tokens.
// Bands must be ordered by ascending MaxTokens with the unbounded band last.
func SelectBand(bands []WeightBand, tokens int) WeightBand {
	for _, b := range bands {
		if b.MaxTokens <= 0 || tokens <= b.MaxTokens {
			return b
		}
	}
	if len(bands) > 0 {
		return bands[len(bands)-1]
	}
	return DefaultWeightBands()[0]
}
