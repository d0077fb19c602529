package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minSignificantLen is the word-length cutoff for the overlap test. Short
// tokens ("ltd", "the", "of") carry no matching signal.
const minSignificantLen = 4

// foldChain strips diacritics so "Café Développements" compares equal to
// "Cafe Developpements". Applicant names on planning registers are frequently
// accented while registry profiles are plain ASCII.
var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName uppercases, trims and removes diacritics for comparison.
func foldName(s string) string {
	folded, _, err := transform.String(foldChain, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}

// FuzzyNameMatch reports whether two organisation names plausibly refer to
// the same entity: either one contains the other (case-insensitive), or at
// least half of the significant words of the shorter name appear in the
// longer name's word set. The relation is symmetric.
func FuzzyNameMatch(a, b string) bool {
	fa, fb := foldName(a), foldName(b)
	if fa == "" || fb == "" {
		return false
	}

	if strings.Contains(fa, fb) || strings.Contains(fb, fa) {
		return true
	}

	// Equal lengths have no shorter string; test both directions so the
	// relation stays symmetric regardless of argument order.
	if len(fa) == len(fb) {
		return wordOverlap(fa, fb) || wordOverlap(fb, fa)
	}

	shorter, longer := fa, fb
	if len(fb) < len(fa) {
		shorter, longer = fb, fa
	}
	return wordOverlap(shorter, longer)
}

// wordOverlap reports whether at least half of x's significant words appear
// in y's word set.
func wordOverlap(x, y string) bool {
	significant := significantWords(x)
	if len(significant) == 0 {
		return false
	}

	set := make(map[string]bool)
	for _, w := range strings.Fields(y) {
		set[w] = true
	}

	hits := 0
	for _, w := range significant {
		if set[w] {
			hits++
		}
	}
	return hits*2 >= len(significant)
}

// significantWords returns the words of s longer than three characters.
func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) >= minSignificantLen {
			out = append(out, w)
		}
	}
	return out
}
