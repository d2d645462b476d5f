package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes accented characters and strips the combining
// marks, so "Ødegård" becomes "Odegard"-ish ASCII.
var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slugify lowercases s, strips diacritics to ASCII, and replaces runs of
// non-alphanumeric characters with a single '-'. Leading and trailing
// dashes are trimmed.
func Slugify(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		// Norwegian/Danish letters have no combining-mark decomposition.
		case r == 'ø':
			b.WriteString("o")
			lastDash = false
		case r == 'æ':
			b.WriteString("ae")
			lastDash = false
		case r == 'ß':
			b.WriteString("ss")
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
