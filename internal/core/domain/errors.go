package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend or provider name.
	ErrUnsupportedType = errors.New("unsupported type")

	// Index Errors.

	// ErrStorageUnavailable indicates an index backend cannot be reached
	// or stayed locked past its retry budget.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrEmbedding indicates text could not be turned into a vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrMalformedFragment indicates a fragment or keyword payload that cannot be indexed.
	// The fragment is skipped; other fragments of the session are unaffected.
	ErrMalformedFragment = errors.New("malformed fragment")

	// ErrRetrievalUnavailable indicates every index failed for a retrieval.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// Service Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
