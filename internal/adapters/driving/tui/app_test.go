package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/core/domain"
)

type stubRetrieval struct {
	docs []domain.RankedDocument
}

func (s stubRetrieval) Retrieve(context.Context, domain.RetrieveRequest) ([]domain.RankedDocument, error) {
	return s.docs, nil
}

func TestPorts_Validate(t *testing.T) {
	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrMissingRetrievalService)
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRetrievalService)
	assert.NoError(t, (&Ports{Retrieval: stubRetrieval{}}).Validate())
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(&Ports{Retrieval: stubRetrieval{}}, Options{OwnerID: 7})

	require.NoError(t, err)
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestNewApp_Errors(t *testing.T) {
	_, err := NewApp(&Ports{}, Options{OwnerID: 7})
	assert.ErrorIs(t, err, ErrMissingRetrievalService)

	_, err = NewApp(&Ports{Retrieval: stubRetrieval{}}, Options{})
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestApp_WindowSizeAndRetrieve(t *testing.T) {
	docs := []domain.RankedDocument{{
		DocID: "7::s1::summary::a", SessionID: "s1", OwnerID: 7,
		Score: 0.02, EvidenceCount: 1, Bucket: domain.BucketLow,
		FragmentTypes: []domain.FragmentType{domain.FragmentSummary},
		Sources:       []domain.Source{domain.SourceLexical},
	}}
	app, err := NewApp(&Ports{Retrieval: stubRetrieval{docs: docs}}, Options{OwnerID: 7})
	require.NoError(t, err)
	app.WithContext(context.Background())

	_, cmd := app.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())

	app.MemoryView().SetQuery("보온병")
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Len(t, app.MemoryView().Documents(), 1)
	assert.Contains(t, app.View(), "Memories (1)")
}

func TestApp_Quit(t *testing.T) {
	app, err := NewApp(&Ports{Retrieval: stubRetrieval{}}, Options{OwnerID: 7})
	require.NoError(t, err)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
