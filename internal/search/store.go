package search

import (
	"fmt"
	"strings"
)

// Algorithm selects the scoring strategy for a Retriever.
type Algorithm string

const (
	AlgorithmKeyword Algorithm = "keyword"
	AlgorithmTFIDF   Algorithm = "tfidf"
)

// ParseAlgorithm accepts "keyword" or "tfidf", case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case AlgorithmKeyword:
		return AlgorithmKeyword, nil
	case AlgorithmTFIDF:
		return AlgorithmTFIDF, nil
	default:
		return "", fmt.Errorf("unknown algorithm %q: expected keyword or tfidf", name)
	}
}

// Retriever answers queries against an index built once over a candidate pool.
type Retriever interface {
	Search(query string, topK int) []AnswerHit
	Algorithm() Algorithm
	Size() int
}

// NewRetriever builds only the index the chosen algorithm needs.
func NewRetriever(algo Algorithm, cards []Card, tokenizer Tokenizer) (Retriever, error) {
	switch algo {
	case AlgorithmKeyword:
		return &keywordRetriever{index: BuildKeywordIndex(cards, tokenizer)}, nil
	case AlgorithmTFIDF:
		return &tfidfRetriever{index: BuildTFIDFIndex(cards, tokenizer)}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}
}

type keywordRetriever struct {
	index *KeywordIndex
}

func (r *keywordRetriever) Search(query string, topK int) []AnswerHit {
	return r.index.Score(query, topK)
}

func (r *keywordRetriever) Algorithm() Algorithm { return AlgorithmKeyword }
func (r *keywordRetriever) Size() int           { return len(r.index.Questions) }

type tfidfRetriever struct {
	index *TFIDFIndex
}

func (r *tfidfRetriever) Search(query string, topK int) []AnswerHit {
	return r.index.Score(query, topK)
}

func (r *tfidfRetriever) Algorithm() Algorithm { return AlgorithmTFIDF }
func (r *tfidfRetriever) Size() int           { return len(r.index.Documents) }
