package textproc

import (
	"strings"
	"unicode"
)

// phoneticDigits maps letters to Soundex-style group digits. Cyrillic groups
// follow the standard consonant classes adapted for Russian; Latin letters
// use the classic Soundex table. Vowel-class letters are absent and encode
// as zero (skipped).
var phoneticDigits = map[rune]byte{
	// Cyrillic: labials, velars, dentals, liquids, nasals, trills, sibilants, hushers.
	'б': '1', 'п': '1', 'ф': '1', 'в': '1',
	'г': '2', 'к': '2', 'х': '2',
	'д': '3', 'т': '3',
	'л': '4',
	'м': '5', 'н': '5',
	'р': '6',
	'с': '7', 'з': '7', 'ц': '7',
	'ж': '8', 'ш': '8', 'ч': '8', 'щ': '8',
	// Latin, classic Soundex.
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// PhoneticCode produces a 4-character code for a word: the uppercased first
// letter followed by up to three group digits, skipping vowel-class letters,
// collapsing adjacent repeats, right-padded with zeros. The empty string
// codes to "".
func PhoneticCode(word string) string {
	runes := []rune(strings.ToLower(word))
	start := 0
	for start < len(runes) && !unicode.IsLetter(runes[start]) {
		start++
	}
	if start == len(runes) {
		return ""
	}

	var b strings.Builder
	b.WriteRune(unicode.ToUpper(runes[start]))

	digits := 0
	prev := phoneticDigits[runes[start]]
	for _, r := range runes[start+1:] {
		if !unicode.IsLetter(r) {
			continue
		}
		d, ok := phoneticDigits[r]
		if !ok {
			// Vowel class: breaks a run of repeats but emits nothing.
			prev = 0
			continue
		}
		if d == prev {
			continue
		}
		b.WriteByte(d)
		prev = d
		digits++
		if digits == 3 {
			break
		}
	}

	for ; digits < 3; digits++ {
		b.WriteByte('0')
	}
	return b.String()
}

// PhoneticMatch reports whether two words share a phonetic code.
func PhoneticMatch(a, b string) bool {
	ca := PhoneticCode(a)
	return ca != "" && ca == PhoneticCode(b)
}
