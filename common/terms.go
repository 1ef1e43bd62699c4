package common

import (
	"regexp"
	"strings"
)

var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// SearchTerms picks up to max lowercased words longer than three characters,
// in order of appearance and without repeats.
func SearchTerms(input string, max int) []string {
	words := nonWordChars.Split(strings.ToLower(strings.TrimSpace(input)), -1)

	seen := make(map[string]bool, len(words))
	var terms []string
	for _, w := range words {
		if len([]rune(w)) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if max > 0 && len(terms) == max {
			break
		}
	}
	return terms
}
