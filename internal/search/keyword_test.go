package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/rulebot/internal/search"
)

func question(guid, text string) search.Card {
	return search.Card{GUID: guid, Question: text, Answer: "answer " + guid, Topic: search.TopicPath{"Deck"}}
}

func TestKeywordIndex_NoOverlap(t *testing.T) {
	idx := search.BuildKeywordIndex([]search.Card{
		question("c1", "what is a compiler"),
		question("c2", "define an interpreter"),
	}, search.NewTokenizer(2, false, nil))

	assert.Empty(t, idx.Score("banana smoothie", 5))
}

func TestKeywordIndex_PrefersShorterQuestionOnTie(t *testing.T) {
	idx := search.BuildKeywordIndex([]search.Card{
		question("long", "what does a binary search tree store in each node"),
		question("short", "binary search tree"),
	}, search.NewTokenizer(2, false, nil))

	hits := idx.Score("binary tree", 5)

	require.Len(t, hits, 2)
	assert.Equal(t, "short", hits[0].GUID)
	assert.Equal(t, "long", hits[1].GUID)
	assert.Equal(t, 2.0, hits[0].Score)
	assert.Equal(t, "binary search tree", hits[0].Preview)
	assert.Equal(t, search.TopicPath{"Deck"}, hits[0].Topic)
}

func TestKeywordIndex_RanksByOverlapThenGUID(t *testing.T) {
	idx := search.BuildKeywordIndex([]search.Card{
		question("b", "stack queue"),
		question("a", "stack heap"),
		question("c", "stack queue heap"),
	}, search.NewTokenizer(2, false, nil))

	hits := idx.Score("stack queue heap", 10)

	require.Len(t, hits, 3)
	assert.Equal(t, "c", hits[0].GUID)
	assert.Equal(t, 3.0, hits[0].Score)
	// equal overlap and length: GUID ascending
	assert.Equal(t, "a", hits[1].GUID)
	assert.Equal(t, "b", hits[2].GUID)
}

func TestKeywordIndex_RepeatedTokensCountOnce(t *testing.T) {
	idx := search.BuildKeywordIndex([]search.Card{
		question("c1", "loop loop loop"),
	}, search.NewTokenizer(2, false, nil))

	hits := idx.Score("loop loop", 1)

	require.Len(t, hits, 1)
	assert.Equal(t, 1.0, hits[0].Score)
	assert.Equal(t, 3, idx.Questions[0].TokenCount)
}

func TestKeywordIndex_TopK(t *testing.T) {
	idx := search.BuildKeywordIndex([]search.Card{
		question("c1", "memory address"),
		question("c2", "memory leak"),
		question("c3", "memory model"),
	}, search.NewTokenizer(2, false, nil))

	assert.Empty(t, idx.Score("memory", 0))
	assert.Len(t, idx.Score("memory", 2), 2)
	assert.Len(t, idx.Score("memory", 100), 3)
}

func TestKeywordIndex_StopwordsIgnored(t *testing.T) {
	tok := search.NewTokenizer(2, true, search.NewStopwords("what", "is"))
	idx := search.BuildKeywordIndex([]search.Card{
		question("c1", "what is recursion"),
	}, tok)

	assert.Empty(t, idx.Score("what is", 3))
	assert.Len(t, idx.Score("recursion", 3), 1)
}

func TestKeywordIndex_Deterministic(t *testing.T) {
	cards := []search.Card{
		question("z", "alpha beta"),
		question("y", "alpha beta"),
		question("x", "alpha gamma"),
	}
	idx := search.BuildKeywordIndex(cards, search.NewTokenizer(2, false, nil))

	first := idx.Score("alpha beta gamma", 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, idx.Score("alpha beta gamma", 10))
	}
	assert.Equal(t, []string{"x", "y", "z"}, []string{first[0].GUID, first[1].GUID, first[2].GUID})
}
