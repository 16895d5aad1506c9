package util

import (
	"regexp"
	"strings"
)

var nonLabelChars = regexp.MustCompile(`[^a-z0-9-]+`)

// maxLabelLength is the DNS label limit.
const maxLabelLength = 63

// Slug converts a string into a lowercase DNS label candidate.
// Runs of characters outside [a-z0-9-] collapse into a single hyphen, leading
// characters up to the first letter are dropped and the result is cut to 63
// characters. It returns "" when nothing usable remains.
func Slug(s string) string {
	s = strings.ToLower(s)
	s = nonLabelChars.ReplaceAllString(s, "-")
	s = strings.TrimLeftFunc(s, func(r rune) bool { return r < 'a' || r > 'z' })
	if len(s) > maxLabelLength {
		s = s[:maxLabelLength]
	}
	return strings.TrimRight(s, "-")
}
