package telegram

import (
	"fmt"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/match"
)

// WelcomeText is the /start greeting with example questions, mirroring the
// menu the helpdesk bot has always shown.
const WelcomeText = `👋 <b>Здравствуйте! Я бот-помощник по 1С.</b>

Задайте вопрос или выберите раздел в меню.

<b>Примеры вопросов:</b>
• Как создать накладную?
• Где отчёт о прибылях?
• Как провести оплату поставщику?
• Как посмотреть остатки товаров?`

// MenuButtons are the reply-keyboard labels, row by row.
var MenuButtons = [][]string{
	{"📦 Накладные", "📊 Отчеты"},
	{"💰 Платежи", "📋 Документы"},
	{"📈 Финансы", "👥 Контрагенты"},
	{"⚙️ Настройки", "🆘 Помощь"},
}

// fallbackText is shown on a miss: always a graceful reply with generic
// suggestions, never an empty message.
const fallbackText = `🤔 Я не нашёл ответа на этот вопрос.

Попробуйте сформулировать иначе или выберите раздел в меню.

<b>Например:</b>
• Как создать накладную?
• Где отчёт о прибылях?
• Как провести оплату поставщику?`

// FormatReply renders a match result as an HTML chat message. Fuzzy-tier
// matches are prefixed with "did you mean" phrasing and a confidence
// annotation so the user knows the answer is a guess.
func FormatReply(res engine.MatchResult) string {
	if !res.Matched() {
		return fallbackText
	}

	switch res.Tier {
	case match.TierExact:
		return res.Entry.Answer
	case match.TierIndexedFuzzy, match.TierGlobalFuzzy, match.TierRelaxed:
		return fmt.Sprintf(
			"🔎 Возможно, вы имели в виду: <i>%s</i>\n\n%s\n\n<i>Уверенность: %d%%. Если ответ не подходит, отправьте /correct с верным ответом.</i>",
			res.Entry.Question,
			res.Entry.Answer,
			int(res.Confidence*100),
		)
	default:
		return res.Entry.Answer
	}
}
