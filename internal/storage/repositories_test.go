package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onec-assist/answer-engine/internal/observability"
)

func newSQLiteBackend(t *testing.T) (*SQLBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.db")
	b, err := NewSQLBackend("sqlite3", path, SQLOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, path
}

func sqlTestEntries() []KnowledgeEntry {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return []KnowledgeEntry{
		{
			ID:        1,
			Question:  "Как создать накладную?",
			Answer:    "Меню Документы, пункт Накладные.",
			Tags:      []string{"документы"},
			Source:    SourceManual,
			Metadata:  map[string]interface{}{"section": "документы"},
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		},
		{
			ID:        2,
			Question:  "Как провести платеж?",
			Answer:    "Раздел Платежи.",
			Tags:      []string{},
			Source:    SourceUserFeedback,
			Metadata:  map[string]interface{}{},
			CreatedAt: now,
			UpdatedAt: now,
			Version:   2,
		},
	}
}

func TestSQLBackend_PersistLoadRoundtrip(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	ctx := context.Background()
	want := sqlTestEntries()

	require.NoError(t, b.Persist(ctx, want))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Question, got[i].Question)
		assert.Equal(t, want[i].Answer, got[i].Answer)
		assert.Equal(t, want[i].Tags, got[i].Tags)
		assert.Equal(t, want[i].Source, got[i].Source)
		assert.Equal(t, want[i].Metadata, got[i].Metadata)
		assert.Equal(t, want[i].Version, got[i].Version)
		assert.True(t, got[i].CreatedAt.Equal(want[i].CreatedAt), "created_at of entry %d", want[i].ID)
	}
}

func TestSQLBackend_PersistUpsertsInPlace(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	ctx := context.Background()
	entries := sqlTestEntries()
	require.NoError(t, b.Persist(ctx, entries))

	entries[0].Answer = "Обновленный ответ."
	entries[0].Version = 5
	require.NoError(t, b.Persist(ctx, entries))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2, "upsert must not duplicate rows")
	assert.Equal(t, "Обновленный ответ.", got[0].Answer)
	assert.Equal(t, int64(5), got[0].Version)
}

func TestSQLBackend_ReopenSeesPersistedEntries(t *testing.T) {
	b, path := newSQLiteBackend(t)
	ctx := context.Background()
	require.NoError(t, b.Persist(ctx, sqlTestEntries()))
	require.NoError(t, b.Close())

	reopened, err := NewSQLBackend("sqlite3", path, SQLOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLBackend_EmptyTableLoadsEmpty(t *testing.T) {
	b, _ := newSQLiteBackend(t)

	got, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLBackend_CorruptJSONColumnIsCorpusLoadError(t *testing.T) {
	b, path := newSQLiteBackend(t)
	ctx := context.Background()
	require.NoError(t, b.Persist(ctx, sqlTestEntries()))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE knowledge_entries SET tags = 'not json' WHERE id = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = b.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorpusLoad))
}

func TestSQLBackend_PersistAfterCloseIsPersistenceError(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	require.NoError(t, b.Close())

	err := b.Persist(context.Background(), sqlTestEntries())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestStore_OverSQLBackend(t *testing.T) {
	b, _ := newSQLiteBackend(t)
	ctx := context.Background()
	store := NewStore(ctx, b, observability.Nop())

	e1, err := store.AddEntry(ctx, "Как создать накладную?", "ответ", nil, SourceManual, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e1.ID)

	answer := "новый ответ"
	ok, err := store.UpdateEntry(ctx, e1.ID, EntryPatch{Answer: &answer})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "новый ответ", got[0].Answer)
}
