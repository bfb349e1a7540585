package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/match"
	"github.com/onec-assist/answer-engine/internal/storage"
)

func TestFormatReply_ExactMatchIsAnswerOnly(t *testing.T) {
	res := engine.MatchResult{
		Entry: &storage.KnowledgeEntry{
			Question: "Как создать накладную?",
			Answer:   "Откройте раздел Продажи и нажмите Создать.",
		},
		Confidence: 1.0,
		Tier:       match.TierExact,
	}

	got := FormatReply(res)
	assert.Equal(t, "Откройте раздел Продажи и нажмите Создать.", got)
}

func TestFormatReply_FuzzyMatchAnnotated(t *testing.T) {
	res := engine.MatchResult{
		Entry: &storage.KnowledgeEntry{
			Question: "Как создать накладную?",
			Answer:   "Откройте раздел Продажи и нажмите Создать.",
		},
		Confidence: 0.74,
		Tier:       match.TierIndexedFuzzy,
	}

	got := FormatReply(res)
	assert.Contains(t, got, "Возможно, вы имели в виду")
	assert.Contains(t, got, "Как создать накладную?")
	assert.Contains(t, got, "Откройте раздел Продажи и нажмите Создать.")
	assert.Contains(t, got, "74%")
}

func TestFormatReply_RelaxedTierAnnotated(t *testing.T) {
	res := engine.MatchResult{
		Entry:      &storage.KnowledgeEntry{Question: "Акт по НДС", Answer: "Раздел Отчеты."},
		Confidence: 0.4,
		Tier:       match.TierRelaxed,
	}

	got := FormatReply(res)
	assert.Contains(t, got, "40%")
	assert.Contains(t, got, "Раздел Отчеты.")
}

func TestFormatReply_MissReturnsFallback(t *testing.T) {
	got := FormatReply(engine.MatchResult{Tier: match.TierNone})
	assert.Contains(t, got, "не нашёл ответа")
	assert.Contains(t, got, "Как создать накладную?")
	assert.NotEmpty(t, got)
}
