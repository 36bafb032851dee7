package search

import (
	"strings"
	"unicode"
)

// Stopwords is a set of lower-cased words dropped during tokenisation.
type Stopwords map[string]struct{}

// NewStopwords builds a set from words, lower-casing each entry.
func NewStopwords(words ...string) Stopwords {
	set := make(Stopwords, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Contains reports whether word is in the set.
func (s Stopwords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Tokenizer splits text into lower-case alphanumeric tokens.
// The zero value keeps every token and removes nothing.
type Tokenizer struct {
	MinTokenLength  int
	RemoveStopwords bool
	Stopwords       Stopwords
}

// NewTokenizer returns a tokenizer bound to the given rules and stopword set.
func NewTokenizer(minTokenLength int, removeStopwords bool, stopwords Stopwords) Tokenizer {
	if stopwords == nil {
		stopwords = Stopwords{}
	}
	return Tokenizer{
		MinTokenLength:  minTokenLength,
		RemoveStopwords: removeStopwords,
		Stopwords:       stopwords,
	}
}

// Tokenize returns the kept tokens in input order.
func (t Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	runes := 0

	flush := func() {
		if runes == 0 {
			return
		}
		token := current.String()
		if t.keep(token, runes) {
			tokens = append(tokens, token)
		}
		current.Reset()
		runes = 0
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
			runes++
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// TokenSet returns the distinct kept tokens.
func (t Tokenizer) TokenSet(text string) map[string]struct{} {
	tokens := t.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func (t Tokenizer) keep(token string, length int) bool {
	// numeric tokens bypass the length floor
	if length < t.MinTokenLength && !isNumeric(token) {
		return false
	}
	if t.RemoveStopwords && t.Stopwords.Contains(token) {
		return false
	}
	return true
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return token != ""
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for term := range a {
		if _, ok := b[term]; ok {
			count++
		}
	}
	return count
}
