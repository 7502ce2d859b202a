package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen  = regexp.MustCompile(`-+`)

	// NFD decomposition followed by dropping combining marks turns
	// "Nguyễn" into "Nguyen"; anything still outside ASCII is removed by
	// the character filter below.
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify converts a human-readable string into a URL key: transliterated
// to ASCII, lowercased, non-alphanumerics collapsed to single hyphens,
// leading/trailing hyphens trimmed.
func Slugify(input string) string {
	ascii, _, err := transform.String(deaccent, input)
	if err != nil {
		ascii = input
	}

	lower := strings.ToLower(ascii)
	hyphenated := strings.ReplaceAll(lower, " ", "-")
	cleaned := nonSlugChars.ReplaceAllString(hyphenated, "-")
	collapsed := multiHyphen.ReplaceAllString(cleaned, "-")

	return strings.Trim(collapsed, "-")
}
