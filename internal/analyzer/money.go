package analyzer

import (
	"regexp"
	"strings"
	"unicode"
)

// moneyPattern matches "$1,200.50"-style amounts or a number followed by the
// exact word dollars or USD. Both words are case-sensitive.
var moneyPattern = regexp.MustCompile(`\$\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s*(?:dollars|USD)\b`)

// ContainsMoney reports whether text mentions a currency amount. Bare numbers
// without a currency marker do not count.
func ContainsMoney(text string) bool {
	return moneyPattern.MatchString(text)
}

// MoneySentences returns the sentences of text that mention an amount, in
// order. It is used for debug logging of why a row was flagged.
func MoneySentences(text string) []string {
	var matched []string
	for _, s := range splitIntoSentences(text) {
		if moneyPattern.MatchString(s) {
			matched = append(matched, s)
		}
	}
	return matched
}

// splitIntoSentences naively splits text on '.', '!' or '?' followed by
// whitespace or end of text, keeping the delimiter. A period between digits
// ("$1.50") does not end a sentence.
func splitIntoSentences(text string) []string {
	if len(text) == 0 {
		return nil
	}

	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}

	sentences := make([]string, 0, estimated)
	start := 0

	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		if end < len(text) && !unicode.IsSpace(rune(text[end])) {
			continue
		}
		for end < len(text) && unicode.IsSpace(rune(text[end])) {
			end++
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
