// Package slug derives URL-safe identifiers from human-readable names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make normalizes s into a slug: lowercase ASCII letters, digits and single
// hyphens, with no leading or trailing hyphen. Diacritics are stripped
// ("Migración" -> "migracion"); any other character is dropped.
// The result is empty when s has no letters or digits.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}

// Valid reports whether s is already a well-formed slug
func Valid(s string) bool {
	return s != "" && Make(s) == s
}
