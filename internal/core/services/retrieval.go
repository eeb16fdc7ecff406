package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

var (
	errLexicalUnavailable  = errors.New("lexical index unavailable")
	errSemanticUnavailable = errors.New("semantic index unavailable")
)

// RetrievalConfig tunes the fusion engine.
type RetrievalConfig struct {
	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// LexicalTopK and SemanticTopK bound each backend's result list.
	LexicalTopK  int
	SemanticTopK int

	// DefaultTopK applies when a request does not set TopK.
	DefaultTopK int

	// NormalizeQuery cleans the query with NormalizeQuery before searching.
	NormalizeQuery bool

	// Bands are the query length weight bands, shortest first.
	Bands []WeightBand

	// Buckets maps evidence counts to confidence buckets.
	Buckets domain.BucketThresholds
}

// DefaultRetrievalConfig returns the engine defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfigFromSettings(domain.DefaultSettings())
}

// RetrievalConfigFromSettings derives the engine configuration from settings.
func RetrievalConfigFromSettings(s domain.Settings) RetrievalConfig {
	return RetrievalConfig{
		RRFK:           s.Fusion.RRFK,
		LexicalTopK:    s.Lexical.TopK,
		SemanticTopK:   s.Semantic.TopK,
		DefaultTopK:    s.Fusion.TopK,
		NormalizeQuery: s.Fusion.NormalizeQuery,
		Bands:          DefaultWeightBands(),
		Buckets:        s.Buckets,
	}
}

// evidenceKey is one (fragment type, source) pair.
type evidenceKey struct {
	typ    domain.FragmentType
	source domain.Source
}

// documentAggregate accumulates the hits of one doc_id during a single call.
type documentAggregate struct {
	docID       string
	sessionID   string
	ownerID     int64
	sessionDate domain.SessionDate

	baseScore  float64
	types      map[domain.FragmentType]struct{}
	sources    map[domain.Source]struct{}
	seen       map[evidenceKey]struct{}
	finalScore float64
	bucket     domain.Bucket
}

func newDocumentAggregate(hit domain.IndexHit) *documentAggregate {
	return &documentAggregate{
		docID:       hit.DocID,
		sessionID:   hit.SessionID,
		ownerID:     hit.OwnerID,
		sessionDate: domain.ResolveSessionDate(hit.SessionDate, hit.SessionID),
		types:       make(map[domain.FragmentType]struct{}),
		sources:     make(map[domain.Source]struct{}),
		seen:        make(map[evidenceKey]struct{}),
	}
}

func (a *documentAggregate) evidenceCount() int {
	return len(a.seen)
}

func (a *documentAggregate) hasSource(s domain.Source) bool {
	_, ok := a.sources[s]
	return ok
}

// RetrievalService fuses lexical and semantic rankings into one list.
// It holds no per-request state and is safe for concurrent use.
type RetrievalService struct {
	lexical  driven.LexicalIndex
	semantic driven.SemanticIndex
	metrics  driven.Metrics
	now      func() time.Time

	mu  sync.RWMutex
	cfg RetrievalConfig
}

// NewRetrievalService creates a new retrieval service.
// Either index may be nil; retrieval then runs on the other one alone.
func NewRetrievalService(
	lexical driven.LexicalIndex,
	semantic driven.SemanticIndex,
	cfg RetrievalConfig,
) *RetrievalService {
	return &RetrievalService{
		lexical:  lexical,
		semantic: semantic,
		metrics:  noopMetrics{},
		now:      time.Now,
		cfg:      cfg,
	}
}

// SetMetrics sets the metrics recorder. Nil disables recording.
func (s *RetrievalService) SetMetrics(m driven.Metrics) {
	s.metrics = metricsOrNoop(m)
}

// SetClock replaces the wall clock used for decay.
func (s *RetrievalService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// UpdateConfig swaps the fusion configuration. Calls already running keep
// the configuration they started with.
func (s *RetrievalService) UpdateConfig(cfg RetrievalConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns the current fusion configuration.
func (s *RetrievalService) Config() RetrievalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Retrieve queries both indexes concurrently and fuses their rankings.
func (s *RetrievalService) Retrieve(
	ctx context.Context, req domain.RetrieveRequest,
) ([]domain.RankedDocument, error) {
	started := time.Now()
	cfg := s.Config()
	reqID := uuid.NewString()

	query := strings.TrimSpace(req.Query)
	if cfg.NormalizeQuery {
		query = NormalizeQuery(query)
	}
	if query == "" {
		logger.Debug("HYB_SKIP req=%s owner=%d empty query", reqID, req.OwnerID)
		return []domain.RankedDocument{}, nil
	}

	topK := req.TopK
	if topK <= 0 {
		topK = cfg.DefaultTopK
	}
	if topK <= 0 {
		topK = domain.DefaultRetrieveTopK
	}

	tokens := CountTokens(query)
	band := SelectBand(cfg.Bands, tokens)
	logger.Info("HYB_START req=%s owner=%d date_hint=%s tokens=%d band=%s w_lexical=%.2f w_semantic=%.2f",
		reqID, req.OwnerID, req.SessionDateHint, tokens, band.Name,
		band.IndexWeight(domain.SourceLexical), band.IndexWeight(domain.SourceSemantic))

	var lexHits, semHits []domain.IndexHit
	var lexErr, semErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexHits, lexErr = s.searchLexical(ctx, query, cfg.LexicalTopK, req.OwnerID)
	}()

	go func() {
		defer wg.Done()
		semHits, semErr = s.searchSemantic(ctx, query, cfg.SemanticTopK, req.OwnerID)
	}()

	wg.Wait()

	if lexErr != nil && semErr != nil {
		logger.Warn("HYB_ERROR req=%s both indexes failed: lexical: %v; semantic: %v", reqID, lexErr, semErr)
		s.metrics.ObserveRetrieve(time.Since(started), 0, domain.ErrRetrievalUnavailable)
		return []domain.RankedDocument{}, domain.ErrRetrievalUnavailable
	}
	if lexErr != nil {
		logger.Warn("HYB_ERROR req=%s lexical search failed, using semantic results only: %v", reqID, lexErr)
	}
	if semErr != nil {
		logger.Warn("HYB_ERROR req=%s semantic search failed, using lexical results only: %v", reqID, semErr)
	}
	logger.Debug("HYB_FETCH req=%s lexical_n=%d semantic_n=%d", reqID, len(lexHits), len(semHits))

	fused := fuse(lexHits, semHits, band, cfg.RRFK)
	docs := rank(fused, cfg.Buckets, s.now(), topK)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	logger.Info("HYB_TOP req=%s doc_ids=%v", reqID, ids)

	s.metrics.ObserveRetrieve(time.Since(started), len(docs), nil)
	return docs, nil
}

func (s *RetrievalService) searchLexical(
	ctx context.Context, query string, topK int, ownerID int64,
) ([]domain.IndexHit, error) {
	if s.lexical == nil {
		return nil, errLexicalUnavailable
	}
	started := time.Now()
	hits, err := s.lexical.Search(ctx, query, topK, ownerID)
	s.metrics.ObserveSearch(domain.SourceLexical, time.Since(started), len(hits), err)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return hits, nil
}

func (s *RetrievalService) searchSemantic(
	ctx context.Context, query string, topK int, ownerID int64,
) ([]domain.IndexHit, error) {
	if s.semantic == nil {
		return nil, errSemanticUnavailable
	}
	started := time.Now()
	hits, err := s.semantic.SearchSimilar(ctx, query, topK, ownerID)
	s.metrics.ObserveSearch(domain.SourceSemantic, time.Since(started), len(hits), err)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return hits, nil
}

// fuse accumulates weighted reciprocal rank contributions per doc_id.
// Each (type, source) pair counts once per document; lists arrive best
// first, so the counted hit is the best ranked one.
func fuse(lexical, semantic []domain.IndexHit, band WeightBand, k int) map[string]*documentAggregate {
	fused := make(map[string]*documentAggregate)

	add := func(source domain.Source, hit domain.IndexHit) {
		if hit.DocID == "" {
			return
		}
		agg, ok := fused[hit.DocID]
		if !ok {
			agg = newDocumentAggregate(hit)
			fused[hit.DocID] = agg
		}
		if agg.sessionDate == "" {
			agg.sessionDate = domain.ResolveSessionDate(hit.SessionDate, hit.SessionID)
		}

		typ := hit.Type
		if typ == "" {
			typ = domain.FragmentUnknown
		}
		key := evidenceKey{typ: typ, source: source}
		if _, dup := agg.seen[key]; dup {
			return
		}

		rank := hit.Rank
		if rank < 1 {
			rank = 1
		}
		weight := band.IndexWeight(source) * band.TypeWeight(typ)
		agg.baseScore += weight / float64(k+rank)

		agg.seen[key] = struct{}{}
		agg.types[typ] = struct{}{}
		agg.sources[source] = struct{}{}
	}

	for _, h := range lexical {
		add(domain.SourceLexical, h)
	}
	for _, h := range semantic {
		add(domain.SourceSemantic, h)
	}
	return fused
}

// rank applies bonuses, decay and buckets, then sorts and truncates.
func rank(fused map[string]*documentAggregate, buckets domain.BucketThresholds, now time.Time, topK int) []domain.RankedDocument {
	aggs := make([]*documentAggregate, 0, len(fused))
	for _, agg := range fused {
		score := agg.baseScore +
			TypeDiversityBonus(len(agg.types)) +
			CrossSourceBonus(agg.hasSource(domain.SourceLexical), agg.hasSource(domain.SourceSemantic))
		agg.finalScore = score * DecayFactor(agg.sessionDate, now)
		agg.bucket = buckets.Assign(agg.evidenceCount())
		aggs = append(aggs, agg)
	}

	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].finalScore != aggs[j].finalScore {
			return aggs[i].finalScore > aggs[j].finalScore
		}
		return aggs[i].docID < aggs[j].docID
	})
	if len(aggs) > topK {
		aggs = aggs[:topK]
	}

	docs := make([]domain.RankedDocument, len(aggs))
	for i, agg := range aggs {
		docs[i] = domain.RankedDocument{
			DocID:         agg.docID,
			SessionID:     agg.sessionID,
			OwnerID:       agg.ownerID,
			SessionDate:   agg.sessionDate,
			Score:         roundScore(agg.finalScore),
			EvidenceCount: agg.evidenceCount(),
			Bucket:        agg.bucket,
			FragmentTypes: sortedTypes(agg.types),
			Sources:       sortedSources(agg.sources),
		}
	}
	return docs
}

func sortedTypes(set map[domain.FragmentType]struct{}) []domain.FragmentType {
	out := make([]domain.FragmentType, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedSources(set map[domain.Source]struct{}) []domain.Source {
	out := make([]domain.Source, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
