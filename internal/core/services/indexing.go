package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// metaKeywordsDisplay holds the comma separated keyword rendering of a
// keywords_all fragment.
const metaKeywordsDisplay = "keywords_display"

// IndexingService decomposes session summaries into fragments and writes
// them to both indexes.
type IndexingService struct {
	lexical   driven.LexicalIndex
	semantic  driven.SemanticIndex
	summaries driven.SummaryStore
	metrics   driven.Metrics

	replaceSession atomic.Bool
}

// NewIndexingService creates a new indexing service.
// The summary store is only needed by IndexSession and may be nil.
func NewIndexingService(
	lexical driven.LexicalIndex,
	semantic driven.SemanticIndex,
	summaries driven.SummaryStore,
) *IndexingService {
	s := &IndexingService{
		lexical:   lexical,
		semantic:  semantic,
		summaries: summaries,
		metrics:   noopMetrics{},
	}
	s.replaceSession.Store(true)
	return s
}

// SetMetrics sets the metrics recorder. Nil disables recording.
func (s *IndexingService) SetMetrics(m driven.Metrics) {
	s.metrics = metricsOrNoop(m)
}

// SetReplaceSession controls whether a session's existing fragments are
// deleted before it is indexed again.
func (s *IndexingService) SetReplaceSession(replace bool) {
	s.replaceSession.Store(replace)
}

// IndexSession looks up a stored summary and indexes it.
func (s *IndexingService) IndexSession(
	ctx context.Context, ownerID int64, sessionID string,
) (domain.IndexResult, error) {
	result := domain.IndexResult{OwnerID: ownerID, SessionID: sessionID}
	if s.summaries == nil {
		return result, fmt.Errorf("index session %s: summary store unavailable: %w", sessionID, domain.ErrNotFound)
	}

	record, err := s.summaries.Get(ctx, ownerID, sessionID)
	if err != nil {
		return result, fmt.Errorf("index session %s: %w", sessionID, err)
	}
	if record == nil {
		return result, fmt.Errorf("index session %s: %w", sessionID, domain.ErrNotFound)
	}
	return s.IndexSummary(ctx, *record)
}

// IndexSummary decomposes a summary record and upserts every fragment
// into both indexes.
func (s *IndexingService) IndexSummary(
	ctx context.Context, record domain.SummaryRecord,
) (domain.IndexResult, error) {
	result := domain.IndexResult{OwnerID: record.OwnerID, SessionID: record.SessionID}
	if strings.TrimSpace(record.SessionID) == "" {
		return result, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	logger.Section("Index Session")
	logger.Debug("Owner: %d, session: %s", record.OwnerID, record.SessionID)

	fragments, skipped := BuildFragments(record)
	result.Skipped = skipped
	for _, err := range skipped {
		logger.Warn("Skipping fragment of session %s: %v", record.SessionID, err)
	}

	result.DocIDs = make([]string, len(fragments))
	for i, f := range fragments {
		result.DocIDs[i] = f.DocID
	}

	if s.replaceSession.Load() {
		result.Failures = append(result.Failures, s.deleteSession(ctx, record.OwnerID, record.SessionID)...)
	}

	var lexFailed, semFailed int
	for _, f := range fragments {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("index session %s: %w", record.SessionID, err)
		}

		lexErr := s.lexical.Upsert(ctx, f)
		if lexErr != nil {
			lexFailed++
			result.Failures = append(result.Failures, domain.FragmentFailure{
				DocID: f.DocID, Source: domain.SourceLexical, Err: lexErr,
			})
		}

		semErr := s.semantic.Upsert(ctx, f)
		if semErr != nil {
			semFailed++
			result.Failures = append(result.Failures, domain.FragmentFailure{
				DocID: f.DocID, Source: domain.SourceSemantic, Err: semErr,
			})
		}

		if lexErr == nil && semErr == nil {
			result.Written++
		}
	}

	s.metrics.ObserveIndexed(domain.SourceLexical, len(fragments)-lexFailed, lexFailed)
	s.metrics.ObserveIndexed(domain.SourceSemantic, len(fragments)-semFailed, semFailed)
	logger.Info("Indexed session %s: %d/%d fragments written, %d failures",
		record.SessionID, result.Written, len(fragments), len(result.Failures))

	if len(result.Failures) > 0 {
		errs := make([]error, len(result.Failures))
		for i, f := range result.Failures {
			logger.Warn("Fragment write failed: %v", f)
			errs[i] = f
		}
		return result, fmt.Errorf("index session %s: %w", record.SessionID, errors.Join(errs...))
	}
	return result, nil
}

// DeleteSession removes a session's fragments from both indexes.
func (s *IndexingService) DeleteSession(ctx context.Context, ownerID int64, sessionID string) error {
	failures := s.deleteSession(ctx, ownerID, sessionID)
	if len(failures) == 0 {
		logger.Info("Deleted session %s of owner %d from both indexes", sessionID, ownerID)
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return fmt.Errorf("delete session %s: %w", sessionID, errors.Join(errs...))
}

func (s *IndexingService) deleteSession(ctx context.Context, ownerID int64, sessionID string) []domain.FragmentFailure {
	var failures []domain.FragmentFailure
	if err := s.lexical.DeleteBySession(ctx, ownerID, sessionID); err != nil {
		failures = append(failures, domain.FragmentFailure{Source: domain.SourceLexical, Err: err})
	}
	if err := s.semantic.DeleteBySession(ctx, ownerID, sessionID); err != nil {
		failures = append(failures, domain.FragmentFailure{Source: domain.SourceSemantic, Err: err})
	}
	return failures
}

// Stats reports fragment counts per index.
func (s *IndexingService) Stats(ctx context.Context) (domain.IndexStats, error) {
	lexCount, err := s.lexical.Count(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("count lexical fragments: %w", err)
	}
	return domain.IndexStats{
		Lexical:  lexCount,
		Semantic: s.semantic.Count(),
	}, nil
}

// BuildFragments decomposes a summary record into its canonical fragments:
// the summary, the key sentence, all keywords joined by newlines, and one
// fragment per keyword. Empty parts produce no fragment and repeated
// keywords collapse onto one doc_id. A malformed keyword payload drops the
// keyword fragments and is reported in the second return value.
func BuildFragments(record domain.SummaryRecord) ([]domain.Fragment, []error) {
	date := domain.ResolveSessionDate(record.SessionDate, record.SessionID)
	var fragments []domain.Fragment
	var skipped []error
	seen := make(map[string]struct{})

	add := func(f domain.Fragment) {
		if _, dup := seen[f.DocID]; dup {
			return
		}
		if err := f.Validate(); err != nil {
			skipped = append(skipped, err)
			return
		}
		seen[f.DocID] = struct{}{}
		fragments = append(fragments, f)
	}

	if summary := strings.TrimSpace(record.Summary); summary != "" {
		add(domain.NewFragment(record.OwnerID, record.SessionID, date, domain.FragmentSummary, summary))
	}
	if sentence := strings.TrimSpace(record.KeySentence); sentence != "" {
		add(domain.NewFragment(record.OwnerID, record.SessionID, date, domain.FragmentKeySentence, sentence))
	}

	keywords := domain.CleanKeywords(record.Keywords)
	if len(keywords) == 0 && record.RawKeywords != "" {
		parsed, err := domain.ParseKeywords(record.RawKeywords)
		if err != nil {
			skipped = append(skipped, err)
		}
		keywords = parsed
	}
	if len(keywords) == 0 {
		return fragments, skipped
	}

	all := domain.NewFragment(record.OwnerID, record.SessionID, date,
		domain.FragmentKeywordsAll, strings.Join(keywords, "\n"))
	all.Metadata = map[string]string{metaKeywordsDisplay: strings.Join(keywords, ", ")}
	add(all)

	for _, k := range keywords {
		add(domain.NewFragment(record.OwnerID, record.SessionID, date, domain.FragmentKeyword, k))
	}
	return fragments, skipped
}
