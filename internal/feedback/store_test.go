package feedback

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onec-assist/answer-engine/internal/index"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

func newTestStore(t *testing.T, maxRecords int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedback.json")
	return NewStore(path, maxRecords, observability.Nop()), path
}

func TestStore_RecordRoutesByCorrectness(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	_, err := s.Record(ctx, "q1", "a1", true, "", 0.9)
	require.NoError(t, err)
	_, err = s.Record(ctx, "q2", "a2", false, "", 0.5)
	require.NoError(t, err)
	_, err = s.Record(ctx, "q3", "a3", false, "the right answer", 0.4)
	require.NoError(t, err)

	correct, incorrect := s.Counts()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 2, incorrect)

	corrections := s.Corrections()
	require.Len(t, corrections, 1)
	assert.Equal(t, "q3", corrections[0].Question)
	assert.Equal(t, "the right answer", corrections[0].UserCorrection)
}

func TestStore_Accuracy(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	assert.Equal(t, 0.0, s.Accuracy(), "no feedback yet")

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, "q", "a", true, "", 1.0)
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, "q", "a", false, "", 0.3)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, s.Accuracy(), 0.001)
}

func TestStore_CapsEachList(t *testing.T) {
	s, _ := newTestStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, "q", "a", true, "", 1.0)
		require.NoError(t, err)
	}

	correct, _ := s.Counts()
	assert.Equal(t, 3, correct, "oldest records are dropped past the cap")
}

func TestStore_PersistedShape(t *testing.T) {
	s, path := newTestStore(t, 10)
	_, err := s.Record(context.Background(), "q", "a", false, "fix", 0.6)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"correct_responses", "incorrect_responses", "user_corrections", "confidence_stats"} {
		assert.Contains(t, doc, key)
	}
}

func TestStore_ReloadAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	s := NewStore(path, 10, observability.Nop())
	_, err := s.Record(context.Background(), "q", "a", true, "", 0.8)
	require.NoError(t, err)

	reloaded := NewStore(path, 10, observability.Nop())
	correct, incorrect := reloaded.Counts()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 0, incorrect)
}

func TestStore_RejectedRecordLeavesMemoryUnchanged(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "logs")
	s := NewStore(filepath.Join(sub, "feedback.json"), 10, observability.Nop())
	ctx := context.Background()

	// The log directory does not exist yet, so the write fails and the
	// record must not be kept in memory.
	_, err := s.Record(ctx, "q", "a", true, "", 0.9)
	require.ErrorIs(t, err, ErrPersistence)

	correct, incorrect := s.Counts()
	assert.Zero(t, correct)
	assert.Zero(t, incorrect)

	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err = s.Record(ctx, "q2", "a2", false, "", 0.5)
	require.NoError(t, err)

	// Only the accepted record survives, in memory and on disk.
	correct, incorrect = s.Counts()
	assert.Zero(t, correct)
	assert.Equal(t, 1, incorrect)

	reloaded := NewStore(filepath.Join(sub, "feedback.json"), 10, observability.Nop())
	correct, incorrect = reloaded.Counts()
	assert.Zero(t, correct)
	assert.Equal(t, 1, incorrect)
}

func TestStore_ConcurrentRecords(t *testing.T) {
	s, _ := newTestStore(t, 100)
	ctx := context.Background()

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.Record(ctx, "q", "a", w%2 == 0, "", 0.5)
				assert.NoError(t, err)
				s.Accuracy()
			}
		}(w)
	}
	wg.Wait()

	correct, incorrect := s.Counts()
	assert.Equal(t, workers*perWorker, correct+incorrect)
}

func TestStore_MalformedLogDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte("{{"), 0o644))

	s := NewStore(path, 10, observability.Nop())
	correct, incorrect := s.Counts()
	assert.Zero(t, correct)
	assert.Zero(t, incorrect)
}

func TestLearner_ApplyCorrection(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := storage.NewStore(ctx, storage.NewJSONBackend(filepath.Join(dir, "kb.json")), observability.Nop())
	_, err := store.AddEntry(ctx, "Как создать накладную?", "Старый ответ.", nil, storage.SourceManual, nil)
	require.NoError(t, err)

	idx := index.New()
	idx.Rebuild(store.Entries(), store.Generation())

	learner := NewLearner(store, idx, observability.Nop())
	entry, err := learner.ApplyCorrection(ctx, "Как создать накладную?", "Старый ответ.", "Новый правильный ответ.")
	require.NoError(t, err)

	assert.Equal(t, storage.SourceUserFeedback, entry.Source)
	assert.Equal(t, "Новый правильный ответ.", entry.Answer)
	assert.Contains(t, entry.Tags, "corrected")
	assert.Equal(t, "Старый ответ.", entry.Metadata["original_answer"])

	// The original entry survives untouched.
	original, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Старый ответ.", original.Answer)

	// The correction is queryable through the index without a full rebuild.
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, store.Generation(), idx.Generation())
	assert.Contains(t, idx.CandidatesFor([]string{"накладную"}), entry.ID)
}
