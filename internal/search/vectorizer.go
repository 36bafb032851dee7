package search

import (
	"math"
	"sort"
)

// DocumentEntry holds the raw term counts of one candidate question.
type DocumentEntry struct {
	GUID            string
	Topic           TopicPath
	Preview         string
	TermFrequencies map[string]float64
	TokenCount      int
}

// TFIDFIndex implements Term Frequency - Inverse Document Frequency over
// candidate questions. Norms[i] is the L2 norm of Documents[i].
type TFIDFIndex struct {
	tokenizer Tokenizer
	Documents []DocumentEntry
	IDF       map[string]float64
	Norms     []float64
}

// BuildTFIDFIndex tallies term and document frequencies, then precomputes
// smoothed IDF weights and document norms.
func BuildTFIDFIndex(cards []Card, tokenizer Tokenizer) *TFIDFIndex {
	documents := make([]DocumentEntry, 0, len(cards))
	docFrequency := make(map[string]int)

	// 1. Raw term counts per document, document frequency once per document
	for _, card := range cards {
		tokens := tokenizer.Tokenize(card.Question)
		tf := make(map[string]float64)
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			docFrequency[term]++
		}
		documents = append(documents, DocumentEntry{
			GUID:            card.GUID,
			Topic:           card.Topic,
			Preview:         card.Question,
			TermFrequencies: tf,
			TokenCount:      len(tokens),
		})
	}

	// 2. idf = ln((N + 1) / (df + 1)) + 1
	n := float64(len(documents))
	idf := make(map[string]float64, len(docFrequency))
	for term, df := range docFrequency {
		idf[term] = math.Log((n+1)/(float64(df)+1)) + 1
	}

	// 3. Document norms, summed in term order so results are reproducible
	norms := make([]float64, len(documents))
	for i, doc := range documents {
		var sum float64
		for _, term := range sortedTerms(doc.TermFrequencies) {
			w := doc.TermFrequencies[term] * idf[term]
			sum += w * w
		}
		norms[i] = math.Sqrt(sum)
	}

	return &TFIDFIndex{
		tokenizer: tokenizer,
		Documents: documents,
		IDF:       idf,
		Norms:     norms,
	}
}

// VocabularySize is the number of distinct terms across the corpus.
func (ix *TFIDFIndex) VocabularySize() int {
	return len(ix.IDF)
}

// Score ranks documents by cosine similarity with the query and returns at most topK hits.
func (ix *TFIDFIndex) Score(query string, topK int) []AnswerHit {
	tokens := ix.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return []AnswerHit{}
	}

	queryCounts := make(map[string]float64)
	querySet := make(map[string]struct{})
	for _, token := range tokens {
		queryCounts[token]++
		querySet[token] = struct{}{}
	}

	// Terms unseen in the corpus are not part of the vector space.
	var queryTerms []string
	var queryWeights []float64
	var squared float64
	for _, term := range sortedTerms(queryCounts) {
		idf, ok := ix.IDF[term]
		if !ok {
			continue
		}
		w := queryCounts[term] * idf
		queryTerms = append(queryTerms, term)
		queryWeights = append(queryWeights, w)
		squared += w * w
	}
	queryNorm := math.Sqrt(squared)
	if queryNorm == 0 {
		return []AnswerHit{}
	}

	var scored []scoredHit
	for i, doc := range ix.Documents {
		docNorm := ix.Norms[i]
		if docNorm == 0 {
			continue
		}

		var dot float64
		for j, term := range queryTerms {
			if count, ok := doc.TermFrequencies[term]; ok {
				dot += queryWeights[j] * count * ix.IDF[term]
			}
		}
		if dot == 0 {
			continue
		}

		similarity := math.Min(dot/(queryNorm*docNorm), 1)
		shared := 0
		for term := range doc.TermFrequencies {
			if _, ok := querySet[term]; ok {
				shared++
			}
		}

		scored = append(scored, scoredHit{
			hit: AnswerHit{
				GUID:    doc.GUID,
				Score:   similarity,
				Preview: doc.Preview,
				Topic:   doc.Topic,
			},
			overlap:    shared,
			tokenCount: doc.TokenCount,
		})
	}

	return rankHits(scored, topK)
}

func sortedTerms(counts map[string]float64) []string {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
