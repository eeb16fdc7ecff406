package services

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/logger"
)

// --- Mock implementations ---

// mockLexicalIndex implements driven.LexicalIndex for testing.
// Search returns the configured hits, or substring matches over upserted
// fragments when no hits are configured.
type mockLexicalIndex struct {
	mu        sync.Mutex
	hits      []domain.IndexHit
	searchErr error
	upsertErr error
	deleteErr error
	fragments []domain.Fragment
	queries   []string
	delay     time.Duration
}

func (m *mockLexicalIndex) Upsert(_ context.Context, f domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.fragments = removeDoc(m.fragments, f.DocID)
	m.fragments = append(m.fragments, f)
	return nil
}

func (m *mockLexicalIndex) DeleteBySession(_ context.Context, ownerID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.fragments = removeSession(m.fragments, ownerID, sessionID)
	return nil
}

func (m *mockLexicalIndex) Search(_ context.Context, query string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.hits != nil {
		return limitHits(m.hits, topK), nil
	}
	return limitHits(matchFragments(m.fragments, query, ownerID), topK), nil
}

func (m *mockLexicalIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fragments), nil
}

func (m *mockLexicalIndex) Close() error {
	return nil
}

func (m *mockLexicalIndex) docIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.fragments))
	for i, f := range m.fragments {
		ids[i] = f.DocID
	}
	return ids
}

// mockSemanticIndex implements driven.SemanticIndex for testing.
type mockSemanticIndex struct {
	mu        sync.Mutex
	hits      []domain.IndexHit
	searchErr error
	upsertErr error
	deleteErr error
	fragments []domain.Fragment
	queries   []string
}

func (m *mockSemanticIndex) Upsert(_ context.Context, f domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.fragments = removeDoc(m.fragments, f.DocID)
	m.fragments = append(m.fragments, f)
	return nil
}

func (m *mockSemanticIndex) Add(_ context.Context, f domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, f)
	return nil
}

func (m *mockSemanticIndex) DeleteBySession(_ context.Context, ownerID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.fragments = removeSession(m.fragments, ownerID, sessionID)
	return nil
}

func (m *mockSemanticIndex) SearchSimilar(
	_ context.Context, query string, topK int, ownerID int64,
) ([]domain.IndexHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.hits != nil {
		return limitHits(m.hits, topK), nil
	}
	return limitHits(matchFragments(m.fragments, query, ownerID), topK), nil
}

func (m *mockSemanticIndex) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fragments)
}

func (m *mockSemanticIndex) Close() error {
	return nil
}

// mockMetrics implements driven.Metrics for testing.
type mockMetrics struct {
	mu        sync.Mutex
	searches  map[domain.Source]int
	retrieves int
	failed    int
	elapsed   time.Duration
	written   map[domain.Source]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		searches: make(map[domain.Source]int),
		written:  make(map[domain.Source]int),
	}
}

func (m *mockMetrics) ObserveSearch(source domain.Source, _ time.Duration, _ int, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[source]++
}

func (m *mockMetrics) ObserveRetrieve(elapsed time.Duration, _ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieves++
	m.elapsed += elapsed
	if err != nil {
		m.failed++
	}
}

func (m *mockMetrics) ObserveIndexed(source domain.Source, written, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[source] += written
}

// --- Helpers ---

// captureLogs routes verbose log output into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})
	return &buf
}

func removeDoc(fragments []domain.Fragment, docID string) []domain.Fragment {
	out := fragments[:0]
	for _, f := range fragments {
		if f.DocID != docID {
			out = append(out, f)
		}
	}
	return out
}

func removeSession(fragments []domain.Fragment, ownerID int64, sessionID string) []domain.Fragment {
	out := fragments[:0]
	for _, f := range fragments {
		if f.OwnerID != ownerID || f.SessionID != sessionID {
			out = append(out, f)
		}
	}
	return out
}

// matchFragments returns fragments of the owner containing any query token,
// in insertion order.
func matchFragments(fragments []domain.Fragment, query string, ownerID int64) []domain.IndexHit {
	var hits []domain.IndexHit
	for _, f := range fragments {
		if f.OwnerID != ownerID {
			continue
		}
		for _, tok := range strings.Fields(query) {
			if strings.Contains(f.Text, tok) {
				hits = append(hits, domain.IndexHit{
					DocID:       f.DocID,
					Type:        f.Type,
					OwnerID:     f.OwnerID,
					SessionID:   f.SessionID,
					SessionDate: f.SessionDate,
					Rank:        len(hits) + 1,
					Text:        f.Text,
				})
				break
			}
		}
	}
	return hits
}

func limitHits(hits []domain.IndexHit, topK int) []domain.IndexHit {
	if topK > 0 && len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

func hit(docID string, typ domain.FragmentType, rank int) domain.IndexHit {
	return domain.IndexHit{
		DocID:     docID,
		Type:      typ,
		OwnerID:   7,
		SessionID: "session-" + docID,
		Rank:      rank,
	}
}
