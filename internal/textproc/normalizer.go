// Package textproc provides text canonicalization, tokenization and
// typo-tolerant variation generation for Russian and Latin query text.
package textproc

import (
	"strings"
	"unicode"
)

// stopWords are function words dropped during tokenization. Mostly Russian,
// since the knowledge base is authored in Russian, plus a few English ones
// that show up in mixed-language queries.
var stopWords = map[string]struct{}{
	"как": {}, "где": {}, "что": {}, "это": {}, "для": {}, "или": {},
	"его": {}, "она": {}, "они": {}, "оно": {}, "при": {}, "чем": {},
	"нет": {}, "был": {}, "млн": {}, "уже": {}, "еще": {}, "ещё": {},
	"чтобы": {}, "если": {}, "когда": {}, "можно": {}, "нужно": {},
	"the": {}, "and": {}, "for": {}, "how": {}, "what": {}, "where": {},
}

// Normalize lower-cases text, strips punctuation to single spaces and
// collapses whitespace. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == 'ё':
			// Authors are inconsistent about ё, fold it.
			b.WriteRune('е')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits canonical text on whitespace and discards stop words and
// tokens of length <= 2. The order of surviving tokens is preserved.
func Tokenize(canonical string) []string {
	fields := strings.Fields(canonical)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// confusable maps letters to the letter a typist most often substitutes for
// them: unstressed vowel reductions and voiced/voiceless consonant pairs in
// Russian, plus a few Latin equivalents.
var confusable = map[rune]rune{
	'о': 'а', 'а': 'о',
	'е': 'и', 'и': 'е',
	'з': 'с', 'с': 'з',
	'б': 'п', 'п': 'б',
	'д': 'т', 'т': 'д',
	'г': 'к', 'к': 'г',
	'в': 'ф', 'ф': 'в',
	'o': 'a', 'a': 'o',
	'e': 'i', 'i': 'e',
	's': 'z', 'z': 's',
}

// maxVariants bounds the fan-out per token so scoring stays linear in query
// length.
const maxVariants = 12

// Variations generates typo-tolerant alternates of a token: confusable-letter
// substitutions one position at a time, single-character deletions for tokens
// longer than 3 runes, and doubled-letter collapses. The token itself is not
// included.
func Variations(token string) []string {
	runes := []rune(token)
	seen := map[string]struct{}{token: {}}
	variants := make([]string, 0, maxVariants)

	add := func(v string) bool {
		if _, dup := seen[v]; dup {
			return len(variants) < maxVariants
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
		return len(variants) < maxVariants
	}

	// Confusable-letter substitutions.
	for i, r := range runes {
		alt, ok := confusable[r]
		if !ok {
			continue
		}
		sub := make([]rune, len(runes))
		copy(sub, runes)
		sub[i] = alt
		if !add(string(sub)) {
			return variants
		}
	}

	// Single-character deletions.
	if len(runes) > 3 {
		for i := range runes {
			del := make([]rune, 0, len(runes)-1)
			del = append(del, runes[:i]...)
			del = append(del, runes[i+1:]...)
			if !add(string(del)) {
				return variants
			}
		}
	}

	// Doubled-letter collapses.
	for i := 1; i < len(runes); i++ {
		if runes[i] != runes[i-1] {
			continue
		}
		col := make([]rune, 0, len(runes)-1)
		col = append(col, runes[:i]...)
		col = append(col, runes[i+1:]...)
		if !add(string(col)) {
			return variants
		}
	}

	return variants
}
