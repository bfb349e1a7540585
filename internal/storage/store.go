package storage

import (
	"context"
	"time"

	"github.com/onec-assist/answer-engine/internal/observability"
)

// Store owns the ordered, append-only collection of knowledge entries. It is
// not goroutine-safe on its own; the engine serializes mutations together
// with the index rebuild they trigger.
type Store struct {
	backend Backend
	logger  *observability.Logger

	entries    []KnowledgeEntry
	nextID     int64
	generation int64 // bumped on every successful mutation
}

// NewStore loads persisted entries through the backend. A malformed or
// unreadable corpus is logged and degraded to empty so the service can still
// run and accept new entries.
func NewStore(ctx context.Context, backend Backend, logger *observability.Logger) *Store {
	s := &Store{
		backend: backend,
		logger:  logger.WithComponent("storage"),
		nextID:  1,
	}

	entries, err := backend.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("corpus load failed, starting with empty knowledge base")
		entries = []KnowledgeEntry{}
	}

	s.entries = entries
	for _, e := range entries {
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
		if e.Version > s.generation {
			s.generation = e.Version
		}
	}

	s.logger.Info().Int("entries", len(entries)).Msg("knowledge base loaded")
	return s
}

// Entries returns the live entry slice in insertion order. Callers must not
// mutate it; the engine hands out copies across its API boundary.
func (s *Store) Entries() []KnowledgeEntry {
	return s.entries
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Generation returns the store generation, bumped on every successful
// mutation. Index snapshots record it to detect staleness.
func (s *Store) Generation() int64 {
	return s.generation
}

// Get returns the entry with the given id, or false.
func (s *Store) Get(id int64) (KnowledgeEntry, bool) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return s.entries[i], true
		}
	}
	return KnowledgeEntry{}, false
}

// AddEntry assigns the next id, stamps timestamps, persists durably and then
// appends in memory. On a persistence failure the in-memory state is
// unchanged and the error wraps ErrPersistence.
func (s *Store) AddEntry(ctx context.Context, question, answer string, tags []string, source Source, metadata map[string]interface{}) (KnowledgeEntry, error) {
	if source == "" || !KnownSource(source) {
		source = SourceManual
	}
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	now := time.Now().UTC()
	entry := KnowledgeEntry{
		ID:        s.nextID,
		Question:  question,
		Answer:    answer,
		Tags:      tags,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   s.generation + 1,
	}

	candidate := append(append([]KnowledgeEntry{}, s.entries...), entry)
	if err := s.backend.Persist(ctx, candidate); err != nil {
		s.logger.Error().Err(err).Str("question", question).Msg("persist failed, entry rejected")
		return KnowledgeEntry{}, err
	}

	s.entries = candidate
	s.nextID++
	s.generation++

	s.logger.Info().
		Int64("id", entry.ID).
		Str("source", string(source)).
		Int("total", len(s.entries)).
		Msg("knowledge entry added")
	return entry, nil
}

// UpdateEntry merges the patch into the entry with the given id, stamps
// updated_at, and persists. Returns false when the id is unknown; that is an
// expected outcome, not a fault.
func (s *Store) UpdateEntry(ctx context.Context, id int64, patch EntryPatch) (bool, error) {
	idx := -1
	for i := range s.entries {
		if s.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	updated := s.entries[idx]
	if patch.Question != nil {
		updated.Question = *patch.Question
	}
	if patch.Answer != nil {
		updated.Answer = *patch.Answer
	}
	if patch.Tags != nil {
		updated.Tags = patch.Tags
	}
	if patch.Metadata != nil {
		merged := make(map[string]interface{}, len(updated.Metadata)+len(patch.Metadata))
		for k, v := range updated.Metadata {
			merged[k] = v
		}
		for k, v := range patch.Metadata {
			merged[k] = v
		}
		updated.Metadata = merged
	}
	updated.UpdatedAt = time.Now().UTC()
	updated.Version = s.generation + 1

	candidate := append([]KnowledgeEntry{}, s.entries...)
	candidate[idx] = updated
	if err := s.backend.Persist(ctx, candidate); err != nil {
		s.logger.Error().Err(err).Int64("id", id).Msg("persist failed, update rejected")
		return false, err
	}

	s.entries = candidate
	s.generation++

	s.logger.Info().Int64("id", id).Msg("knowledge entry updated")
	return true, nil
}

// CountBySource returns entry counts grouped by source.
func (s *Store) CountBySource() map[Source]int {
	counts := make(map[Source]int, 4)
	for i := range s.entries {
		counts[s.entries[i].Source]++
	}
	return counts
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
