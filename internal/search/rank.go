package search

import "sort"

// scoredHit carries the tie-break keys alongside a hit until ranking is done.
type scoredHit struct {
	hit        AnswerHit
	overlap    int
	tokenCount int
}

// rankHits orders by score desc, overlap desc, token count asc, GUID asc
// and truncates to topK.
func rankHits(scored []scoredHit, topK int) []AnswerHit {
	if topK <= 0 || len(scored) == 0 {
		return []AnswerHit{}
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.hit.Score != b.hit.Score {
			return a.hit.Score > b.hit.Score
		}
		if a.overlap != b.overlap {
			return a.overlap > b.overlap
		}
		if a.tokenCount != b.tokenCount {
			return a.tokenCount < b.tokenCount
		}
		return a.hit.GUID < b.hit.GUID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	hits := make([]AnswerHit, len(scored))
	for i, s := range scored {
		hits[i] = s.hit
	}
	return hits
}
