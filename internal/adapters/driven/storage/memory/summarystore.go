package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure SummaryStore implements the interface.
var _ driven.SummaryStore = (*SummaryStore)(nil)

type summaryKey struct {
	ownerID   int64
	sessionID string
}

// SummaryStore is an in-memory implementation of driven.SummaryStore.
type SummaryStore struct {
	mu      sync.RWMutex
	records map[summaryKey]domain.SummaryRecord
	now     func() time.Time
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		records: make(map[summaryKey]domain.SummaryRecord),
		now:     time.Now,
	}
}

// Get retrieves the summary of a session.
func (s *SummaryStore) Get(_ context.Context, ownerID int64, sessionID string) (*domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[summaryKey{ownerID, sessionID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Keywords = append([]string(nil), rec.Keywords...)
	return &rec, nil
}

// Save stores or replaces a summary record.
func (s *SummaryStore) Save(_ context.Context, record domain.SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = s.now()
	}
	record.Keywords = append([]string(nil), record.Keywords...)
	s.records[summaryKey{record.OwnerID, record.SessionID}] = record
	return nil
}

// Delete removes a summary record.
func (s *SummaryStore) Delete(_ context.Context, ownerID int64, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, summaryKey{ownerID, sessionID})
	return nil
}

// List returns every summary of an owner, most recently updated first.
func (s *SummaryStore) List(_ context.Context, ownerID int64) ([]domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SummaryRecord, 0)
	for k, rec := range s.records {
		if k.ownerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}
