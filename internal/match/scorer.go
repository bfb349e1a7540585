// Package match implements the multi-signal similarity scorer and the tiered
// match pipeline over the knowledge base.
package match

import (
	"math"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/onec-assist/answer-engine/internal/textproc"
)

// Signal weights. String similarity carries the match; keyword overlap and
// the first-letter bonus refine it.
const (
	stringSimWeight      = 0.6
	keywordOverlapWeight = 0.3
	firstLetterWeight    = 0.1
	firstLetterBonus     = 0.2

	// Floors applied after the weighted sum: independent typo-tolerant
	// evidence must not be diluted by the average.
	phoneticFloor  = 0.6
	variationFloor = 0.55

	// Leading-prefix length for the phonetic comparison.
	phoneticPrefixLen = 10
)

// Score holds the per-signal components of one query/entry comparison.
type Score struct {
	StringSim      float64
	KeywordOverlap float64
	FirstLetter    float64
	PhoneticHit    bool
	VariationHit   bool
	Confidence     float64
}

// ScoreMatch computes the composite similarity between a normalized query and
// a normalized entry question. The result confidence is always in [0, 1].
func ScoreMatch(queryNorm, entryNorm string, queryKeywords, entryKeywords []string) Score {
	s := Score{
		StringSim:      stringSimilarity(queryNorm, entryNorm),
		KeywordOverlap: keywordOverlap(queryKeywords, entryKeywords),
	}
	if sharesFirstLetter(queryNorm, entryNorm) {
		s.FirstLetter = firstLetterBonus
	}

	s.Confidence = stringSimWeight*s.StringSim +
		keywordOverlapWeight*s.KeywordOverlap +
		firstLetterWeight*s.FirstLetter

	if textproc.PhoneticMatch(runePrefix(queryNorm, phoneticPrefixLen), runePrefix(entryNorm, phoneticPrefixLen)) {
		s.PhoneticHit = true
		if s.Confidence < phoneticFloor {
			s.Confidence = phoneticFloor
		}
	}

	if variationSubstringHit(queryKeywords, entryNorm) {
		s.VariationHit = true
		if s.Confidence < variationFloor {
			s.Confidence = variationFloor
		}
	}

	s.Confidence = math.Max(0.0, math.Min(1.0, s.Confidence))
	return s
}

// stringSimilarity is a normalized edit-distance similarity over two
// canonical strings: 1 - levenshtein/maxlen, measured in runes.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0.0
	}
	dist := matchr.Levenshtein(a, b)
	sim := 1.0 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0.0
	}
	return sim
}

// keywordOverlap is the fraction of query keywords also present in the entry.
func keywordOverlap(queryKeywords, entryKeywords []string) float64 {
	if len(queryKeywords) == 0 {
		return 0.0
	}
	entrySet := make(map[string]struct{}, len(entryKeywords))
	for _, kw := range entryKeywords {
		entrySet[kw] = struct{}{}
	}
	shared := 0
	for _, kw := range queryKeywords {
		if _, ok := entrySet[kw]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryKeywords))
}

// SharedKeywords counts query keywords present in the entry keywords. Used by
// the relaxed tier.
func SharedKeywords(queryKeywords, entryKeywords []string) int {
	entrySet := make(map[string]struct{}, len(entryKeywords))
	for _, kw := range entryKeywords {
		entrySet[kw] = struct{}{}
	}
	shared := 0
	for _, kw := range queryKeywords {
		if _, ok := entrySet[kw]; ok {
			shared++
		}
	}
	return shared
}

func sharesFirstLetter(a, b string) bool {
	wa, wb := firstWord(a), firstWord(b)
	if wa == "" || wb == "" {
		return false
	}
	return []rune(wa)[0] == []rune(wb)[0]
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// variationSubstringHit reports whether any typo-tolerant variation of any
// query keyword occurs as a substring of the entry text.
func variationSubstringHit(queryKeywords []string, entryNorm string) bool {
	for _, kw := range queryKeywords {
		for _, v := range textproc.Variations(kw) {
			if strings.Contains(entryNorm, v) {
				return true
			}
		}
	}
	return false
}
