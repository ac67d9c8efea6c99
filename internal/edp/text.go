package edp

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace so that
// "  En Revisión " and "en revision" compare equal.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers and transformers carry state; build them per call.
	folded := cases.Fold().String(s)
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), folded)
	if err != nil {
		stripped = folded
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// Lower trims and lower-cases s without touching accents.
func Lower(s string) string {
	return cases.Lower(language.Spanish).String(strings.TrimSpace(s))
}

// ContainsFold reports whether needle occurs in haystack ignoring case and accents.
func ContainsFold(haystack, needle string) bool {
	needle = Fold(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), needle)
}

// FoldKey turns a spreadsheet header such as "N° EDP" into "n_edp".
func FoldKey(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	underscore := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
