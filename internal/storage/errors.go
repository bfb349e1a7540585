package storage

import "errors"

// Common errors
var (
	// ErrCorpusLoad indicates the persisted knowledge base was malformed or
	// unreadable. Callers degrade to an empty corpus rather than failing.
	ErrCorpusLoad = errors.New("corpus load failed")

	// ErrPersistence indicates a durable write failed. The in-memory store is
	// left in its pre-write state when this is returned.
	ErrPersistence = errors.New("persistence write failed")

	// ErrNotFound indicates a lookup for an unknown entry id.
	ErrNotFound = errors.New("entry not found")
)
