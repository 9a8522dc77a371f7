package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// StripInvisible removes format characters such as zero-width spaces and joiners.
func StripInvisible(text string) string {
	result, _, err := transform.String(runes.Remove(runes.In(unicode.Cf)), text)
	if err != nil {
		return text
	}
	return result
}

// IsBlank reports whether text has nothing but whitespace and invisible characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(StripInvisible(text)) == ""
}

// SplitKeywords splits a comma-separated keyword list. Empty elements are kept.
func SplitKeywords(pattern string) []string {
	return strings.Split(pattern, ",")
}
