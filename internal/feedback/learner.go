package feedback

import (
	"context"
	"time"

	"github.com/onec-assist/answer-engine/internal/index"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

// Learner folds corrected answers back into the knowledge base. The original
// entry is never mutated or deleted: a correction appends a superseding
// user_feedback entry, and only that one entry is folded into the index, so
// additive correction stays cheap.
type Learner struct {
	store  *storage.Store
	idx    *index.Inverted
	logger *observability.Logger
}

// NewLearner creates a learner over the given store and index. The caller is
// responsible for serializing ApplyCorrection with other store mutations.
func NewLearner(store *storage.Store, idx *index.Inverted, logger *observability.Logger) *Learner {
	return &Learner{
		store:  store,
		idx:    idx,
		logger: logger.WithComponent("learner"),
	}
}

// ApplyCorrection appends a user_feedback entry for the corrected answer and
// folds it into the index incrementally.
func (l *Learner) ApplyCorrection(ctx context.Context, question, originalAnswer, correction string) (storage.KnowledgeEntry, error) {
	entry, err := l.store.AddEntry(ctx, question, correction,
		[]string{"corrected"},
		storage.SourceUserFeedback,
		map[string]interface{}{
			"original_answer": originalAnswer,
			"corrected_at":    time.Now().UTC().Format(time.RFC3339),
		},
	)
	if err != nil {
		return storage.KnowledgeEntry{}, err
	}

	l.idx.Add(entry)
	l.idx.SetGeneration(l.store.Generation())

	l.logger.Info().
		Int64("entry_id", entry.ID).
		Str("question", question).
		Msg("correction folded into knowledge base")
	return entry, nil
}
