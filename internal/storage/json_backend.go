package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend persists the full ordered entry collection. The persisted form is
// the interchange format: a JSON array of entry objects, regardless of
// backend.
type Backend interface {
	// Load reads all persisted entries in insertion order. A missing store is
	// not an error and yields an empty slice; malformed data wraps
	// ErrCorpusLoad.
	Load(ctx context.Context) ([]KnowledgeEntry, error)

	// Persist durably writes the full entry collection. Any failure wraps
	// ErrPersistence and leaves the previously persisted state intact.
	Persist(ctx context.Context, entries []KnowledgeEntry) error

	Close() error
}

// JSONBackend stores the knowledge base as a flat JSON file, the format the
// helpdesk team has always shipped knowledge bases in.
type JSONBackend struct {
	path string
}

// NewJSONBackend creates a backend writing to the given file path.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

// Load reads the JSON array from disk.
func (b *JSONBackend) Load(ctx context.Context) ([]KnowledgeEntry, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return []KnowledgeEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorpusLoad, b.path, err)
	}

	var entries []KnowledgeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorpusLoad, b.path, err)
	}
	return entries, nil
}

// Persist writes the full array atomically: temp file in the same directory,
// then rename over the target.
func (b *JSONBackend) Persist(ctx context.Context, entries []KnowledgeEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".kb-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrPersistence, err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *JSONBackend) Close() error {
	return nil
}
