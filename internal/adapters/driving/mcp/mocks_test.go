package mcp

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	docs    []domain.RankedDocument
	err     error
	lastReq domain.RetrieveRequest
}

func (m *mockRetrievalService) Retrieve(_ context.Context, req domain.RetrieveRequest) ([]domain.RankedDocument, error) {
	m.lastReq = req
	return m.docs, m.err
}

// mockSelectionPolicy records the need it was called with.
type mockSelectionPolicy struct {
	lastNeed int
}

func (m *mockSelectionPolicy) Select(docs []domain.RankedDocument, need int) domain.Selection {
	m.lastNeed = need
	sel := domain.Selection{Picked: docs}
	for _, d := range docs {
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

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	result    domain.IndexResult
	err       error
	deleteErr error
	stats     domain.IndexStats
	statsErr  error
	deleted   []string
}

func (m *mockIndexingService) IndexSummary(_ context.Context, _ domain.SummaryRecord) (domain.IndexResult, error) {
	return m.result, m.err
}

func (m *mockIndexingService) IndexSession(_ context.Context, _ int64, _ string) (domain.IndexResult, error) {
	return m.result, m.err
}

func (m *mockIndexingService) DeleteSession(_ context.Context, _ int64, sessionID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, sessionID)
	return nil
}

func (m *mockIndexingService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.statsErr
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.Settings) error { return m.err }

func (m *mockSettingsService) Validate() error { return m.err }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }
