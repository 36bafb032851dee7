package search

import (
	"strings"
)

// TopicPath is an ordered list of hierarchical deck labels, e.g. course then unit.
// An empty path means no topic was assigned.
type TopicPath []string

// Card is a single question/answer pair loaded from a deck.
type Card struct {
	GUID string
	// Question is normalised for matching.
	Question string
	// Answer is kept raw; escape it before display.
	Answer string
	Topic  TopicPath
}

// AnswerHit is one ranked result returned by a scorer.
type AnswerHit struct {
	GUID    string    `json:"guid"`
	Score   float64   `json:"score"`
	Preview string    `json:"preview,omitempty"`
	Topic   TopicPath `json:"topic"`
}

// ParseTopicPath splits text on sep and trims each segment.
// Blank text yields an empty path.
func ParseTopicPath(text, sep string) TopicPath {
	if strings.TrimSpace(text) == "" {
		return TopicPath{}
	}
	parts := strings.Split(text, sep)
	path := make(TopicPath, len(parts))
	for i, part := range parts {
		path[i] = strings.TrimSpace(part)
	}
	return path
}

// Join renders the path using sep between segments.
func (p TopicPath) Join(sep string) string {
	return strings.Join(p, sep)
}

// String renders the path with the deck separator "::".
func (p TopicPath) String() string {
	return p.Join("::")
}

// Equal reports segment-wise equality.
func (p TopicPath) Equal(other TopicPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading segments of p.
func (p TopicPath) HasPrefix(prefix TopicPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, segment := range prefix {
		if p[i] != segment {
			return false
		}
	}
	return true
}

// Compare orders paths segment by segment; a strict prefix sorts first.
func (p TopicPath) Compare(other TopicPath) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		if c := strings.Compare(p[i], other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	}
	return 0
}

// key is a structural map key: quoting each segment keeps separators inside
// segments from colliding with the boundary marker.
func (p TopicPath) key() string {
	var b strings.Builder
	for _, segment := range p {
		b.WriteString(quoteSegment(segment))
		b.WriteByte('/')
	}
	return b.String()
}

func quoteSegment(segment string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(segment, `\`, `\\`), `"`, `\"`) + `"`
}
