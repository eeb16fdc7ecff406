package services

import (
	"sort"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ensure BucketQuotaPolicy implements the interface.
var _ driving.SelectionPolicy = BucketQuotaPolicy{}

// DefaultSelectionNeed is how many documents are picked when the caller
// does not say.
const DefaultSelectionNeed = 4

// BucketQuotaPolicy picks a fixed number of documents per bucket and
// backfills by score. When the high bucket alone can satisfy the request,
// only high documents are picked.
type BucketQuotaPolicy struct {
	High   int
	Middle int
	Low    int
}

// DefaultBucketQuotaPolicy takes one high, one middle and two low documents.
func DefaultBucketQuotaPolicy() BucketQuotaPolicy {
	return BucketQuotaPolicy{High: 1, Middle: 1, Low: 2}
}

// Select picks up to need documents. Buckets in the returned selection
// only list picked documents.
func (p BucketQuotaPolicy) Select(docs []domain.RankedDocument, need int) domain.Selection {
	if need <= 0 {
		need = DefaultSelectionNeed
	}

	rows := make([]domain.RankedDocument, len(docs))
	copy(rows, docs)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].DocID < rows[j].DocID
	})

	var high, middle, low []domain.RankedDocument
	for _, r := range rows {
		switch r.Bucket {
		case domain.BucketHigh:
			high = append(high, r)
		case domain.BucketMiddle:
			middle = append(middle, r)
		default:
			low = append(low, r)
		}
	}

	var picked []domain.RankedDocument
	if len(high) >= need {
		picked = high[:need]
	} else {
		picked = append(picked, high[:min(p.High, len(high))]...)
		picked = append(picked, middle[:min(p.Middle, len(middle))]...)
		picked = append(picked, low[:min(p.Low, len(low))]...)

		if len(picked) < need {
			taken := make(map[string]struct{}, len(picked))
			for _, d := range picked {
				taken[d.DocID] = struct{}{}
			}
			for _, r := range rows {
				if len(picked) >= need {
					break
				}
				if _, ok := taken[r.DocID]; ok {
					continue
				}
				picked = append(picked, r)
			}
		}
		if len(picked) > need {
			picked = picked[:need]
		}
	}

	return reportSelection(picked)
}

func reportSelection(picked []domain.RankedDocument) domain.Selection {
	sel := domain.Selection{
		High:   []domain.RankedDocument{},
		Middle: []domain.RankedDocument{},
		Low:    []domain.RankedDocument{},
		Picked: append([]domain.RankedDocument{}, picked...),
	}
	for _, d := range picked {
		switch d.Bucket {
		case domain.BucketHigh:
			sel.High = append(sel.High, d)
		case domain.BucketMiddle:
			sel.Middle = append(sel.Middle, d)
		default:
			sel.Low = append(sel.Low, d)
		}
	}
	return sel
}
