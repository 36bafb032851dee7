package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowledge-engine/rulebot/internal/search"
)

func TestTokenize(t *testing.T) {
	tok := search.NewTokenizer(2, false, nil)

	assert.Equal(t, []string{"ai", "and", "ml"}, tok.Tokenize("AI, and ML!"))
}

func TestTokenize_LengthFloorAndDigits(t *testing.T) {
	tok := search.NewTokenizer(3, false, nil)

	tokens := tok.Tokenize("a 7 is in 42 of the HTTP/2 draft")

	assert.Equal(t, []string{"7", "42", "the", "http", "2", "draft"}, tokens)
	for _, token := range tokens {
		runes := []rune(token)
		numeric := true
		for _, r := range runes {
			if r < '0' || r > '9' {
				numeric = false
			}
		}
		assert.True(t, len(runes) >= 3 || numeric, "token %q violates length rule", token)
	}
}

func TestTokenize_Stopwords(t *testing.T) {
	stop := search.NewStopwords("The", "is", "OF")

	enabled := search.NewTokenizer(2, true, stop)
	disabled := search.NewTokenizer(2, false, stop)

	text := "What is the speed of light?"
	assert.Equal(t, []string{"what", "speed", "light"}, enabled.Tokenize(text))
	assert.Equal(t, []string{"what", "is", "the", "speed", "of", "light"}, disabled.Tokenize(text))
	assert.Equal(t, enabled.Tokenize(text), enabled.Tokenize(text))
}

func TestTokenize_Unicode(t *testing.T) {
	tok := search.NewTokenizer(2, false, nil)

	assert.Equal(t, []string{"café", "über", "ñandú"}, tok.Tokenize("Café¿ÜBER; Ñandú"))
}

func TestTokenize_Empty(t *testing.T) {
	tok := search.NewTokenizer(2, true, search.NewStopwords("a"))

	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("  ,;!? "))
}

func TestTokenSet(t *testing.T) {
	tok := search.NewTokenizer(2, false, nil)

	set := tok.TokenSet("go go GO gopher")

	assert.Len(t, set, 2)
	assert.Contains(t, set, "go")
	assert.Contains(t, set, "gopher")
}
