package librarycache

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featParenRe  = regexp.MustCompile(`(?i)[\(\[]\s*(feat\.?|featuring)\s[^\)\]]*[\)\]]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	smartQuoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "“", `"`, "”", `"`,
		"–", "-", "—", "-",
	)
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
}

// Normalize applies the canonical text pipeline used for every index key
// and matcher comparison: Unicode NFC, lowercase, smart-quote/dash folding,
// feat./featuring parenthetical stripping, whitespace collapse. Grounded on
// the order confirmed by original_source's utils/text_normalizer.py.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = smartQuoteReplacer.Replace(s)
	s = featParenRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TruncateAlbum applies the album_lc_trunc50 rule from the LibrarySnapshot
// track shape: normalize, then truncate to 50 runes.
func TruncateAlbum(s string) string {
	n := Normalize(s)
	r := []rune(n)
	if len(r) > 50 {
		r = r[:50]
	}
	return string(r)
}

// words splits normalized text into a set of non-stopword tokens, used by
// the fuzzy-word-overlap comparison.
func words(normalized string) map[string]struct{} {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		if _, stop := stopwords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// fuzzyWordOverlap computes set-intersection / set-union over non-stopword
// tokens of a and b. Returns 0 if either side yields zero usable tokens (the
// abstain rule for very short strings, applied by the caller).
func fuzzyWordOverlap(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
