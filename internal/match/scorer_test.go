package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onec-assist/answer-engine/internal/textproc"
)

func scoreFor(query, entry string) Score {
	qn := textproc.Normalize(query)
	en := textproc.Normalize(entry)
	return ScoreMatch(qn, en, textproc.Tokenize(qn), textproc.Tokenize(en))
}

func TestScoreMatch_IdenticalText(t *testing.T) {
	s := scoreFor("Как создать накладную?", "как создать накладную")
	assert.Equal(t, 1.0, s.StringSim)
	assert.Equal(t, 1.0, s.KeywordOverlap)
	// 0.6 + 0.3 + 0.1*0.2: the first-letter bonus tops out at 0.2, so even
	// identical text scores 0.92 here. Confidence 1.0 comes from the exact
	// tier, which bypasses the scorer.
	assert.InDelta(t, 0.92, s.Confidence, 0.001)
}

func TestScoreMatch_TypoQueryStaysAboveThreshold(t *testing.T) {
	s := scoreFor("как саздать накладную", "Как создать накладную?")
	assert.GreaterOrEqual(t, s.Confidence, 0.4, "one-letter typo must clear the fuzzy threshold")
}

func TestScoreMatch_UnrelatedTextScoresLow(t *testing.T) {
	s := scoreFor("погода в москве", "Как создать накладную?")
	assert.Less(t, s.Confidence, 0.35)
}

func TestScoreMatch_ConfidenceBounds(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"а", "совершенно другой текст про другое"},
		{"Как создать накладную?", "Как создать накладную?"},
		{"плотежи", "платежи"},
		{"abc", "абв"},
	}
	for _, p := range pairs {
		s := scoreFor(p[0], p[1])
		assert.GreaterOrEqual(t, s.Confidence, 0.0, "pair %v", p)
		assert.LessOrEqual(t, s.Confidence, 1.0, "pair %v", p)
	}
}

func TestScoreMatch_PhoneticFloor(t *testing.T) {
	// Same phonetic code on the leading prefix lifts confidence to the floor
	// even when edit distance alone is weak.
	s := scoreFor("плотежи", "платежи")
	assert.True(t, s.PhoneticHit)
	assert.GreaterOrEqual(t, s.Confidence, 0.6)
}

func TestScoreMatch_VariationFloor(t *testing.T) {
	s := scoreFor("наклодные", "накладные документы поставщика")
	assert.True(t, s.VariationHit)
	assert.GreaterOrEqual(t, s.Confidence, 0.55)
}

func TestScoreMatch_Deterministic(t *testing.T) {
	first := scoreFor("как саздать накладную", "Как создать накладную?")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, scoreFor("как саздать накладную", "Как создать накладную?"))
	}
}

func TestKeywordOverlap_EmptyQuery(t *testing.T) {
	assert.Equal(t, 0.0, keywordOverlap(nil, []string{"создать"}))
}

func TestSharedKeywords(t *testing.T) {
	q := []string{"создать", "накладную", "поставщика"}
	e := []string{"накладную", "создать"}
	assert.Equal(t, 2, SharedKeywords(q, e))
	assert.Equal(t, 0, SharedKeywords(nil, e))
}

func TestStringSimilarity_RuneAware(t *testing.T) {
	// One substitution in a 7-rune word.
	sim := stringSimilarity("платежи", "плотежи")
	assert.InDelta(t, 1.0-1.0/7.0, sim, 0.001)
}
