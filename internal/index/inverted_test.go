package index

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onec-assist/answer-engine/internal/storage"
)

func testEntries() []storage.KnowledgeEntry {
	return []storage.KnowledgeEntry{
		{ID: 1, Question: "Как создать накладную?", Answer: "a", Source: storage.SourceManual},
		{ID: 2, Question: "Как провести платеж?", Answer: "b", Source: storage.SourceManual},
		{ID: 3, Question: "Отчеты", Answer: "c", Source: storage.SourceButton},
	}
}

func TestInverted_Rebuild(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 3)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, int64(3), idx.Generation())

	doc, ok := idx.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "как создать накладную", doc.Norm)
	assert.Equal(t, []string{"создать", "накладную"}, doc.Keywords)
}

func TestInverted_CandidatesForKeyword(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 1)

	ids := idx.CandidatesFor([]string{"накладную"})
	assert.Equal(t, []int64{1}, ids)
}

func TestInverted_CandidatesWidenedByPhonetics(t *testing.T) {
	idx := New()
	idx.Rebuild([]storage.KnowledgeEntry{
		{ID: 5, Question: "Платежи", Answer: "a", Source: storage.SourceButton},
	}, 1)

	// "плотежи" shares no keyword but codes like the entry question.
	ids := idx.CandidatesFor([]string{"плотежи"})
	assert.NotContains(t, idx.keywords, "плотежи")
	assert.Contains(t, ids, int64(5))
}

func TestInverted_CandidatesFailOpen(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 1)

	ids := idx.CandidatesFor([]string{"квартальный"})
	assert.Equal(t, idx.AllIDs(), ids, "zero postings must return the full corpus")
}

func TestInverted_AddIncremental(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 1)

	idx.Add(storage.KnowledgeEntry{ID: 9, Question: "Как удалить накладную?", Source: storage.SourceUserFeedback})
	idx.SetGeneration(2)

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, int64(2), idx.Generation())
	assert.ElementsMatch(t, []int64{1, 9}, idx.CandidatesFor([]string{"накладную"}))
}

func TestInverted_AddSameIDTwice(t *testing.T) {
	idx := New()
	idx.Add(storage.KnowledgeEntry{ID: 1, Question: "Как создать накладную?"})
	idx.Add(storage.KnowledgeEntry{ID: 1, Question: "Как создать счет?"})

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []int64{1}, idx.AllIDs())

	doc, ok := idx.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "как создать счет", doc.Norm)
}

func TestSnapshot_Roundtrip(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 7)

	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, idx.WriteSnapshot(path))

	restored, err := LoadSnapshot(path, 7)
	require.NoError(t, err)

	assert.Equal(t, idx.Len(), restored.Len())
	assert.Equal(t, idx.Generation(), restored.Generation())
	assert.Equal(t, idx.AllIDs(), restored.AllIDs())

	want, _ := idx.Doc(1)
	got, ok := restored.Doc(1)
	require.True(t, ok)
	assert.Equal(t, want, got)

	assert.Equal(t,
		idx.CandidatesFor([]string{"накладную"}),
		restored.CandidatesFor([]string{"накладную"}))
}

func TestSnapshot_RejectsStaleGeneration(t *testing.T) {
	idx := New()
	idx.Rebuild(testEntries(), 7)

	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, idx.WriteSnapshot(path))

	_, err := LoadSnapshot(path, 8)
	assert.True(t, errors.Is(err, ErrSnapshotStale))
}

func TestSnapshot_MissingFile(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.json"), 1)
	assert.Error(t, err)
}
