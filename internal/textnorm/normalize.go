// Package textnorm turns free text into the canonical token stream used by
// the lexical similarity model.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern = regexp.MustCompile(`<.*?>`)
	nonLetter      = regexp.MustCompile(`[^a-zA-Z]`)
)

// Normalize strips markup, keeps ASCII letters only, lowercases, removes
// English stopwords and lemmatizes what remains. Tokens are joined by a
// single space. Empty input yields an empty string.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens is Normalize without the final join
func Tokens(text string) []string {
	if text == "" {
		return nil
	}
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = nonLetter.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if IsStopword(f) {
			continue
		}
		tokens = append(tokens, Lemmatize(f))
	}
	return tokens
}
