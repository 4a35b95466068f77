// Package textnorm normalises free text typed into treasury worksheets so
// keyword comparisons ignore case, accents and stray whitespace.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Upper returns s uppercased, without diacritics, with runs of whitespace
// (including non-breaking spaces) collapsed to one space and trimmed.
// "  Donación   mayo " -> "DONACION MAYO"
func Upper(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	out := make([]rune, 0, len(stripped))
	prevSpace := true
	for _, r := range strings.ToUpper(stripped) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				out = append(out, ' ')
				prevSpace = true
			}
			continue
		}
		out = append(out, r)
		prevSpace = false
	}
	return strings.TrimRight(string(out), " ")
}

// ContainsAny reports whether the normalised text contains any of the
// normalised keywords.
func ContainsAny(text string, keywords ...string) bool {
	n := Upper(text)
	for _, k := range keywords {
		if k = Upper(k); k != "" && strings.Contains(n, k) {
			return true
		}
	}
	return false
}
