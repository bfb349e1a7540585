// Package feedback records answer accept/reject events and folds corrections
// back into the knowledge base.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onec-assist/answer-engine/internal/observability"
)

// ErrPersistence indicates the feedback log could not be written.
var ErrPersistence = errors.New("feedback persistence failed")

// Record is one accept/reject/correction event tied to a query+answer pair.
type Record struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Question       string    `json:"question"`
	GivenAnswer    string    `json:"given_answer"`
	Correct        bool      `json:"correct"`
	UserCorrection string    `json:"user_correction,omitempty"`
	Confidence     float64   `json:"confidence"`
}

// ConfidencePoint is one sample of answer confidence over time.
type ConfidencePoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// fileData is the persisted form: a JSON object with four capped lists.
type fileData struct {
	CorrectResponses   []Record          `json:"correct_responses"`
	IncorrectResponses []Record          `json:"incorrect_responses"`
	UserCorrections    []Record          `json:"user_corrections"`
	ConfidenceStats    []ConfidencePoint `json:"confidence_stats"`
}

// Store is the append-only feedback log. Each list keeps only the most recent
// maxRecords entries to bound storage. The store carries its own lock: the
// engine records feedback outside its knowledge-base lock, and concurrent
// webhook requests may record at the same time.
type Store struct {
	path       string
	maxRecords int
	logger     *observability.Logger

	mu   sync.RWMutex
	data fileData
}

// NewStore loads the feedback log from path. A malformed or unreadable log is
// degraded to empty, same policy as the knowledge base.
func NewStore(path string, maxRecords int, logger *observability.Logger) *Store {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	s := &Store{
		path:       path,
		maxRecords: maxRecords,
		logger:     logger.WithComponent("feedback"),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run.
	case err != nil:
		s.logger.Warn().Err(err).Msg("feedback log unreadable, starting empty")
	default:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			s.logger.Warn().Err(err).Msg("feedback log malformed, starting empty")
			s.data = fileData{}
		}
	}

	return s
}

// Record appends an event to the correct or incorrect list, records the
// confidence sample, truncates every list to the most recent maxRecords, and
// persists.
func (s *Store) Record(ctx context.Context, question, answer string, correct bool, correction string, confidence float64) (Record, error) {
	rec := Record{
		ID:             uuid.New(),
		Timestamp:      time.Now().UTC(),
		Question:       question,
		GivenAnswer:    answer,
		Correct:        correct,
		UserCorrection: correction,
		Confidence:     confidence,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Build the post-append state aside and commit it only after it is on
	// disk, so a rejected record never lingers in memory.
	next := s.data
	if correct {
		next.CorrectResponses = appendCapped(next.CorrectResponses, rec, s.maxRecords)
	} else {
		next.IncorrectResponses = appendCapped(next.IncorrectResponses, rec, s.maxRecords)
	}
	if correction != "" {
		next.UserCorrections = appendCapped(next.UserCorrections, rec, s.maxRecords)
	}
	next.ConfidenceStats = appendCapped(next.ConfidenceStats, ConfidencePoint{
		Timestamp:  rec.Timestamp,
		Confidence: confidence,
	}, s.maxRecords)

	if err := s.persist(next); err != nil {
		return Record{}, err
	}
	s.data = next

	s.logger.Info().
		Bool("correct", correct).
		Bool("has_correction", correction != "").
		Float64("confidence", confidence).
		Msg("feedback recorded")
	return rec, nil
}

// Counts returns the number of correct and incorrect responses on record.
func (s *Store) Counts() (correct, incorrect int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.CorrectResponses), len(s.data.IncorrectResponses)
}

// Accuracy returns the fraction of recorded responses marked correct, or 0
// when there is no feedback yet.
func (s *Store) Accuracy() float64 {
	s.mu.RLock()
	correct := len(s.data.CorrectResponses)
	incorrect := len(s.data.IncorrectResponses)
	s.mu.RUnlock()

	total := correct + incorrect
	if total == 0 {
		return 0.0
	}
	return float64(correct) / float64(total)
}

// Corrections returns the recorded user corrections, most recent last.
func (s *Store) Corrections() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.data.UserCorrections))
	copy(out, s.data.UserCorrections)
	return out
}

// persist writes the given state with a temp-file rename. Caller holds the
// write lock, which also serializes the rename against concurrent records.
func (s *Store) persist(d fileData) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".feedback-*.json")
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
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}

func appendCapped[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}
