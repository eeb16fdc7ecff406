package tui

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("tui: retrieval service is required")

// ErrInvalidOwner is returned when no owner id is given.
var ErrInvalidOwner = errors.New("tui: owner id is required")
