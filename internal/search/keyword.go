package search

// PreparedQuestion caches the token set of one candidate question.
type PreparedQuestion struct {
	GUID       string
	Topic      TopicPath
	Preview    string
	Tokens     map[string]struct{}
	TokenCount int
}

// KeywordIndex scores queries by token-set overlap.
type KeywordIndex struct {
	tokenizer Tokenizer
	Questions []PreparedQuestion
}

// BuildKeywordIndex tokenises every candidate question once.
func BuildKeywordIndex(cards []Card, tokenizer Tokenizer) *KeywordIndex {
	questions := make([]PreparedQuestion, 0, len(cards))
	for _, card := range cards {
		tokens := tokenizer.Tokenize(card.Question)
		set := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			set[token] = struct{}{}
		}
		questions = append(questions, PreparedQuestion{
			GUID:       card.GUID,
			Topic:      card.Topic,
			Preview:    card.Question,
			Tokens:     set,
			TokenCount: len(tokens),
		})
	}
	return &KeywordIndex{tokenizer: tokenizer, Questions: questions}
}

// Score returns at most topK hits; each shared token is worth 1.
// Questions sharing no token with the query are left out.
func (ix *KeywordIndex) Score(query string, topK int) []AnswerHit {
	querySet := ix.tokenizer.TokenSet(query)
	if len(querySet) == 0 {
		return []AnswerHit{}
	}

	var scored []scoredHit
	for _, q := range ix.Questions {
		shared := overlap(querySet, q.Tokens)
		if shared == 0 {
			continue
		}
		scored = append(scored, scoredHit{
			hit: AnswerHit{
				GUID:    q.GUID,
				Score:   float64(shared),
				Preview: q.Preview,
				Topic:   q.Topic,
			},
			overlap:    shared,
			tokenCount: q.TokenCount,
		})
	}

	return rankHits(scored, topK)
}
