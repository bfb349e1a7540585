package match

import (
	"strings"

	"github.com/onec-assist/answer-engine/internal/storage"
	"github.com/onec-assist/answer-engine/internal/textproc"
)

// buttonPhrases are the fixed menu labels the chat UI sends, with the typo
// variants support has actually seen users type.
var buttonPhrases = []string{
	"накладные", "накладная", "наклодные",
	"отчеты", "отчети", "атчеты",
	"платежи", "плотежи",
	"документы", "дакументы",
	"финансы", "финанси",
	"контрагенты", "кантрагенты",
	"настройки", "настроики",
	"помощь", "помошь", "помош",
}

// buttonEmojis are the icon-only buttons of the chat menu.
var buttonEmojis = []string{
	"📦", "📊", "💰", "📋", "📈", "👥", "⚙️", "🆘", "⬅️", "🏠",
}

// Classification is the result of button recognition.
type Classification struct {
	IsButton bool
	Source   storage.Source
	Text     string
}

// ButtonRouter recognizes fixed-menu shorthand inputs so the pipeline can be
// scoped to button-sourced entries first.
type ButtonRouter struct{}

// NewButtonRouter creates a button router.
func NewButtonRouter() *ButtonRouter {
	return &ButtonRouter{}
}

// Classify reports whether text is a menu/button selection. Prefixed inputs
// ("button:", "menu:") carry an explicit source; otherwise a fixed set of
// Russian button phrases (including known typo variants) and menu emojis is
// checked against the text.
func (r *ButtonRouter) Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)

	if rest, ok := cutPrefixFold(trimmed, "button:"); ok {
		return Classification{IsButton: true, Source: storage.SourceButton, Text: strings.TrimSpace(rest)}
	}
	if rest, ok := cutPrefixFold(trimmed, "menu:"); ok {
		return Classification{IsButton: true, Source: storage.SourceMenu, Text: strings.TrimSpace(rest)}
	}

	for _, emoji := range buttonEmojis {
		if strings.Contains(trimmed, emoji) {
			return Classification{IsButton: true, Source: storage.SourceButton, Text: trimmed}
		}
	}

	norm := textproc.Normalize(trimmed)
	for _, phrase := range buttonPhrases {
		if strings.Contains(norm, phrase) {
			return Classification{IsButton: true, Source: storage.SourceButton, Text: trimmed}
		}
	}

	return Classification{Text: trimmed}
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding on the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return s, false
	}
	if strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
