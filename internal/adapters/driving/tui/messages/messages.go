// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/recall/internal/core/domain"
)

// RetrieveRequested is a command to query the memory indexes.
type RetrieveRequested struct {
	Request domain.RetrieveRequest
}

// RetrieveCompleted carries ranked documents back to the model.
type RetrieveCompleted struct {
	Query     string
	Documents []domain.RankedDocument
	Err       error
}

// SessionDeleted signals a session's fragments were removed from both indexes.
type SessionDeleted struct {
	OwnerID   int64
	SessionID string
	Err       error
}

// StatsLoaded carries fragment counts for the status line.
type StatsLoaded struct {
	Stats domain.IndexStats
	Err   error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
