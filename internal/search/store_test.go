package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/rulebot/internal/search"
)

func TestParseAlgorithm(t *testing.T) {
	algo, err := search.ParseAlgorithm("TFIDF")
	require.NoError(t, err)
	assert.Equal(t, search.AlgorithmTFIDF, algo)

	algo, err = search.ParseAlgorithm(" keyword ")
	require.NoError(t, err)
	assert.Equal(t, search.AlgorithmKeyword, algo)

	_, err = search.ParseAlgorithm("bm25")
	assert.Error(t, err)
}

func TestNewRetriever(t *testing.T) {
	cards := []search.Card{
		question("c1", "what is an operating system"),
		question("c2", "what is a file system"),
	}
	tok := search.NewTokenizer(2, false, nil)

	for _, algo := range []search.Algorithm{search.AlgorithmKeyword, search.AlgorithmTFIDF} {
		r, err := search.NewRetriever(algo, cards, tok)
		require.NoError(t, err)
		assert.Equal(t, algo, r.Algorithm())
		assert.Equal(t, 2, r.Size())

		hits := r.Search("operating system", 1)
		require.Len(t, hits, 1)
		assert.Equal(t, "c1", hits[0].GUID)
	}

	_, err := search.NewRetriever("bogus", cards, tok)
	assert.Error(t, err)
}
