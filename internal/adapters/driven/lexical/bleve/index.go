// Package bleve implements the lexical index in memory on bleve.
// Text is analysed into 2-3 character n-grams so Hangul substrings match
// the way the FTS5 trigram index does.
package bleve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	blevesearch "github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/token/ngram"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

const (
	ngramFilterName = "recall_ngram"
	ngramAnalyzer   = "recall_ngram_text"

	fieldText        = "text"
	fieldOwnerID     = "owner_id"
	fieldSessionID   = "session_id"
	fieldSessionDate = "session_date"
	fieldType        = "type"
	fieldSeq         = "seq"
)

// deletePageSize bounds how many ids a session delete collects per search.
const deletePageSize = 1000

// Index is an in-memory bleve keyword index.
type Index struct {
	index blevesearch.Index

	// mu serialises writers and guards seq.
	mu  sync.Mutex
	seq int64
}

var _ driven.LexicalIndex = (*Index)(nil)

// New creates an empty in-memory index.
func New() (*Index, error) {
	m, err := newMapping()
	if err != nil {
		return nil, err
	}
	idx, err := blevesearch.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("%w: creating bleve index: %v", domain.ErrStorageUnavailable, err)
	}
	return &Index{index: idx}, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	m := blevesearch.NewIndexMapping()

	err := m.AddCustomTokenFilter(ngramFilterName, map[string]interface{}{
		"type": ngram.Name,
		"min":  2.0,
		"max":  3.0,
	})
	if err != nil {
		return nil, fmt.Errorf("registering ngram filter: %w", err)
	}
	err = m.AddCustomAnalyzer(ngramAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, ngramFilterName},
	})
	if err != nil {
		return nil, fmt.Errorf("registering ngram analyzer: %w", err)
	}

	text := blevesearch.NewTextFieldMapping()
	text.Analyzer = ngramAnalyzer

	exact := blevesearch.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	doc := blevesearch.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldText, text)
	doc.AddFieldMappingsAt(fieldOwnerID, blevesearch.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(fieldSessionID, exact)
	doc.AddFieldMappingsAt(fieldSessionDate, exact)
	doc.AddFieldMappingsAt(fieldType, exact)
	doc.AddFieldMappingsAt(fieldSeq, blevesearch.NewNumericFieldMapping())

	m.DefaultMapping = doc
	m.DefaultAnalyzer = keyword.Name
	return m, nil
}

// Upsert replaces the fragment with the same doc id.
func (ix *Index) Upsert(_ context.Context, fragment domain.Fragment) error {
	if err := fragment.Validate(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.index.Delete(fragment.DocID); err != nil {
		return fmt.Errorf("%w: deleting fragment: %v", domain.ErrStorageUnavailable, err)
	}

	ix.seq++
	doc := map[string]interface{}{
		fieldText:        fragment.Text,
		fieldOwnerID:     float64(fragment.OwnerID),
		fieldSessionID:   fragment.SessionID,
		fieldSessionDate: fragment.SessionDate.String(),
		fieldType:        fragment.Type.String(),
		fieldSeq:         float64(ix.seq),
	}
	if err := ix.index.Index(fragment.DocID, doc); err != nil {
		return fmt.Errorf("%w: indexing fragment: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// DeleteBySession removes every fragment of a session.
func (ix *Index) DeleteBySession(ctx context.Context, ownerID int64, sessionID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	sessionQuery := blevesearch.NewTermQuery(sessionID)
	sessionQuery.SetField(fieldSessionID)
	q := blevesearch.NewConjunctionQuery(ownerQuery(ownerID), sessionQuery)

	deleted := 0
	for {
		req := blevesearch.NewSearchRequestOptions(q, deletePageSize, 0, false)
		res, err := ix.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("%w: finding session fragments: %v", domain.ErrStorageUnavailable, err)
		}
		if len(res.Hits) == 0 {
			break
		}

		batch := ix.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("%w: deleting session: %v", domain.ErrStorageUnavailable, err)
		}
		deleted += len(res.Hits)
	}

	logger.Debug("bleve: deleted %d fragments of %d/%s", deleted, ownerID, sessionID)
	return nil
}

// Search returns up to topK fragments of the owner, best score first and
// insertion order among ties.
func (ix *Index) Search(ctx context.Context, text string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	hits := make([]domain.IndexHit, 0)
	if topK <= 0 || strings.TrimSpace(text) == "" {
		return hits, nil
	}

	match := blevesearch.NewMatchQuery(strings.ToLower(text))
	match.SetField(fieldText)
	q := blevesearch.NewConjunctionQuery(match, ownerQuery(ownerID))

	req := blevesearch.NewSearchRequestOptions(q, topK, 0, false)
	req.Fields = []string{fieldOwnerID, fieldSessionID, fieldSessionDate, fieldType, fieldText}
	req.SortBy([]string{"-_score", fieldSeq})

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return hits, ctx.Err()
		}
		return hits, fmt.Errorf("%w: lexical search: %v", domain.ErrStorageUnavailable, err)
	}

	for i, h := range res.Hits {
		hit := domain.IndexHit{
			DocID:       h.ID,
			OwnerID:     ownerID,
			SessionID:   stringField(h.Fields, fieldSessionID),
			SessionDate: domain.SessionDate(stringField(h.Fields, fieldSessionDate)),
			Type:        domain.NormalizeFragmentType(stringField(h.Fields, fieldType)),
			Rank:        i + 1,
			Source:      domain.SourceLexical,
			Score:       h.Score,
			Text:        stringField(h.Fields, fieldText),
		}
		if v, ok := h.Fields[fieldOwnerID].(float64); ok {
			hit.OwnerID = int64(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed fragments.
func (ix *Index) Count(_ context.Context) (int, error) {
	n, err := ix.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: counting fragments: %v", domain.ErrStorageUnavailable, err)
	}
	return int(n), nil
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

func ownerQuery(ownerID int64) query.Query {
	v := float64(ownerID)
	inclusive := true
	q := blevesearch.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	q.SetField(fieldOwnerID)
	return q
}

func stringField(fields map[string]interface{}, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}
