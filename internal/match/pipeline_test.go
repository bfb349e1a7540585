package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onec-assist/answer-engine/internal/index"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

func testCorpus(entries []storage.KnowledgeEntry) Corpus {
	idx := index.New()
	idx.Rebuild(entries, 1)
	return Corpus{Entries: entries, Index: idx}
}

func testEntries() []storage.KnowledgeEntry {
	now := time.Now().UTC()
	return []storage.KnowledgeEntry{
		{ID: 1, Question: "Как создать накладную?", Answer: "Меню Документы, пункт Накладные, кнопка Создать.", Source: storage.SourceManual, CreatedAt: now},
		{ID: 2, Question: "Как провести платеж?", Answer: "Раздел Платежи, кнопка Провести.", Source: storage.SourceManual, CreatedAt: now},
		{ID: 3, Question: "Накладные", Answer: "Раздел со списком накладных.", Source: storage.SourceButton, CreatedAt: now},
		{ID: 4, Question: "Как настроить резервное копирование базы?", Answer: "Администрирование, Резервное копирование.", Source: storage.SourceManual, CreatedAt: now},
	}
}

func newTestPipeline() *Pipeline {
	return NewPipeline(DefaultConfig(), observability.Nop())
}

func TestPipeline_ExactMatch(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("как создать накладную"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(1), res.Entry.ID)
	assert.Equal(t, TierExact, res.Tier)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestPipeline_ExactIgnoresCaseAndPunctuation(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("КАК СОЗДАТЬ НАКЛАДНУЮ???"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, TierExact, res.Tier)
}

func TestPipeline_TypoFallsToFuzzy(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("как саздать накладную"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(1), res.Entry.ID)
	assert.Equal(t, TierIndexedFuzzy, res.Tier)
	assert.GreaterOrEqual(t, res.Confidence, 0.4)
}

func TestPipeline_UnrelatedQueryMisses(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("погода в москве завтра"), corpus, Options{})

	assert.Nil(t, res.Entry)
	assert.Equal(t, TierNone, res.Tier)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestPipeline_EmptyQueryMisses(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("   ?!  "), corpus, Options{})

	assert.Equal(t, TierNone, res.Tier)
}

func TestPipeline_EmptyCorpusMisses(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(nil)

	res := p.Best(ParseQuery("как создать накладную"), corpus, Options{})

	assert.Equal(t, TierNone, res.Tier)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestPipeline_SourceFilterScopesExact(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.Best(ParseQuery("накладные"), corpus, Options{SourceFilter: storage.SourceButton})

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(3), res.Entry.ID)
	assert.Equal(t, TierExact, res.Tier)
}

func TestPipeline_BestButton_ScopedFirst(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	res := p.BestButton(ParseQuery("наклодные"), corpus, storage.SourceButton)

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(3), res.Entry.ID, "button-sourced entry wins over the manual one")
}

func TestPipeline_BestButton_FallsBackUnscoped(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	// No menu-sourced entries exist, so the scoped pass misses and the
	// unscoped pass still answers.
	res := p.BestButton(ParseQuery("как провести платеж"), corpus, storage.SourceMenu)

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(2), res.Entry.ID)
}

func TestPipeline_RelaxedTier(t *testing.T) {
	p := newTestPipeline()
	entries := []storage.KnowledgeEntry{
		{ID: 1, Question: "Как оформить акт по НДС?", Answer: "a", Source: storage.SourceManual},
	}
	corpus := testCorpus(entries)

	// Shares the short keywords "акт" and "ндс" but the composite score is
	// too weak for the fuzzy tiers.
	res := p.Best(ParseQuery("акт ндс где можно найти образец для заполнения"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(1), res.Entry.ID)
	assert.Equal(t, TierRelaxed, res.Tier)
	assert.InDelta(t, 0.4, res.Confidence, 0.001)
}

func TestPipeline_Deterministic(t *testing.T) {
	p := newTestPipeline()
	corpus := testCorpus(testEntries())

	first := p.Best(ParseQuery("как саздать накладную"), corpus, Options{})
	for i := 0; i < 10; i++ {
		res := p.Best(ParseQuery("как саздать накладную"), corpus, Options{})
		assert.Equal(t, first.Entry.ID, res.Entry.ID)
		assert.Equal(t, first.Confidence, res.Confidence)
		assert.Equal(t, first.Tier, res.Tier)
	}
}

func TestPipeline_TieBreaksOnLowestID(t *testing.T) {
	p := newTestPipeline()
	entries := []storage.KnowledgeEntry{
		{ID: 7, Question: "Сверка взаиморасчетов", Answer: "a", Source: storage.SourceManual},
		{ID: 2, Question: "Сверка взаиморасчетов", Answer: "b", Source: storage.SourceManual},
	}
	corpus := testCorpus(entries)

	res := p.Best(ParseQuery("сверка взаиморасчетав"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(2), res.Entry.ID)
}

func TestPipeline_ExactDuplicateLatestEntryWins(t *testing.T) {
	p := newTestPipeline()
	entries := []storage.KnowledgeEntry{
		{ID: 2, Question: "Как провести платеж?", Answer: "устаревший ответ", Source: storage.SourceManual},
		{ID: 5, Question: "Как провести платеж?", Answer: "актуальный ответ", Source: storage.SourceUserFeedback},
	}
	corpus := testCorpus(entries)

	res := p.Best(ParseQuery("как провести платеж"), corpus, Options{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, TierExact, res.Tier)
	assert.Equal(t, int64(5), res.Entry.ID)
	assert.Equal(t, "актуальный ответ", res.Entry.Answer)
}

func TestButtonRouter_Prefixes(t *testing.T) {
	r := NewButtonRouter()

	cls := r.Classify("button:Накладные")
	assert.True(t, cls.IsButton)
	assert.Equal(t, storage.SourceButton, cls.Source)
	assert.Equal(t, "Накладные", cls.Text)

	cls = r.Classify("MENU:главное меню")
	assert.True(t, cls.IsButton)
	assert.Equal(t, storage.SourceMenu, cls.Source)
	assert.Equal(t, "главное меню", cls.Text)
}

func TestButtonRouter_PhrasesAndEmojis(t *testing.T) {
	r := NewButtonRouter()

	assert.True(t, r.Classify("📦 Накладные").IsButton)
	assert.True(t, r.Classify("Отчеты").IsButton)
	assert.True(t, r.Classify("наклодные").IsButton, "known typo variants count as buttons")

	cls := r.Classify("как создать накладную с нуля")
	assert.False(t, cls.IsButton)
	assert.Equal(t, "как создать накладную с нуля", cls.Text)
}
