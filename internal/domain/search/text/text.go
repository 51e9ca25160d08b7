// Package text normalizes and tokenizes free-text queries.
package text

import (
	"regexp"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s]`)
	word       = regexp.MustCompile(`\w+`)
)

// NormalizeQuery lower-cases text, replaces everything outside [a-z0-9] and
// whitespace with a space, and collapses whitespace runs. Idempotent.
func NormalizeQuery(s string) string {
	s = disallowed.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize returns the set of lower-cased word tokens in s.
func Tokenize(s string) map[string]struct{} {
	matches := Words(s)
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m] = struct{}{}
	}
	return set
}

// Words returns the lower-cased word tokens of s in order, duplicates kept.
func Words(s string) []string {
	return word.FindAllString(strings.ToLower(s), -1)
}
