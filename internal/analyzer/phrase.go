// Package analyzer holds the text heuristics applied to extracted articles:
// search phrase counting and money mention detection. Everything here is pure
// and safe to call from tests without a browser.
package analyzer

import (
	"strings"

	"golang.org/x/text/cases"
)

// Result is the analysis of one article.
type Result struct {
	PhraseCount   int
	ContainsMoney bool
}

// Analyze counts phrase occurrences in title and description separately and
// checks both for money mentions.
func Analyze(title, description, phrase string) Result {
	return Result{
		PhraseCount:   CountPhrase(title, phrase) + CountPhrase(description, phrase),
		ContainsMoney: ContainsMoney(title + " " + description),
	}
}

// CountPhrase returns the number of positions in text where the words of
// phrase appear in sequence. Words are whitespace separated and compared with
// Unicode case folding, so "economy" matches "Economy" but not "economyboom".
// Overlapping occurrences each count.
func CountPhrase(text, phrase string) int {
	caser := cases.Fold()
	words := tokenize(caser, text)
	target := tokenize(caser, phrase)

	if len(target) == 0 || len(target) > len(words) {
		return 0
	}

	count := 0
	for i := 0; i+len(target) <= len(words); i++ {
		if equalWords(words[i:i+len(target)], target) {
			count++
		}
	}
	return count
}

func tokenize(caser cases.Caser, s string) []string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = caser.String(f)
	}
	return fields
}

func equalWords(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
