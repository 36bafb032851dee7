package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const maxSuggestions = 5

var (
	ErrEmptyTopic   = errors.New("topic cannot be empty")
	ErrUnknownTopic = errors.New("unknown topic")
)

// TopicError describes a topic string that could not be resolved.
type TopicError struct {
	Requested   string
	Suggestions []string
	Err         error
}

func (e *TopicError) Error() string {
	if errors.Is(e.Err, ErrEmptyTopic) {
		return "topic cannot be empty; provide a valid deck path"
	}
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown topic %q: no topics available", e.Requested)
	}
	return fmt.Sprintf("unknown topic %q; did you mean one of: %s",
		e.Requested, strings.Join(e.Suggestions, ", "))
}

func (e *TopicError) Unwrap() error {
	return e.Err
}

// TopicIndex groups cards by their exact topic path.
type TopicIndex struct {
	groups map[string][]Card
	paths  []TopicPath // first-seen order
}

// BuildTopicIndex groups cards by exact topic path, preserving input order within a group.
func BuildTopicIndex(cards []Card) *TopicIndex {
	idx := &TopicIndex{groups: make(map[string][]Card)}
	for _, card := range cards {
		k := card.Topic.key()
		if _, ok := idx.groups[k]; !ok {
			idx.paths = append(idx.paths, card.Topic)
		}
		idx.groups[k] = append(idx.groups[k], card)
	}
	return idx
}

// Cards returns the cards whose path equals path exactly.
func (idx *TopicIndex) Cards(path TopicPath) []Card {
	return idx.groups[path.key()]
}

// Paths returns every indexed path in first-seen order.
func (idx *TopicIndex) Paths() []TopicPath {
	return idx.paths
}

// ListAvailableTopics returns the distinct non-empty topic paths in segment-wise order.
func ListAvailableTopics(cards []Card) []TopicPath {
	seen := make(map[string]struct{})
	var topics []TopicPath
	for _, card := range cards {
		if len(card.Topic) == 0 {
			continue
		}
		k := card.Topic.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		topics = append(topics, card.Topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].Compare(topics[j]) < 0
	})
	return topics
}

// ResolveTopicString converts user input into a known topic path.
// Unknown topics fail with up to five suggestions.
func ResolveTopicString(input, sep string, known []TopicPath) (TopicPath, error) {
	path := ParseTopicPath(input, sep)
	if len(path) == 0 {
		return nil, &TopicError{Requested: input, Err: ErrEmptyTopic}
	}

	for _, topic := range known {
		if topic.Equal(path) {
			return topic, nil
		}
	}

	return nil, &TopicError{
		Requested:   path.Join(sep),
		Suggestions: suggestTopics(path[0], sep, known),
		Err:         ErrUnknownTopic,
	}
}

func suggestTopics(firstSegment, sep string, known []TopicPath) []string {
	unique := make(map[string]struct{}, len(known))
	rendered := make([]string, 0, len(known))
	for _, topic := range known {
		s := topic.Join(sep)
		if _, ok := unique[s]; ok {
			continue
		}
		unique[s] = struct{}{}
		rendered = append(rendered, s)
	}
	sort.Strings(rendered)

	var suggestions []string
	for _, s := range rendered {
		if strings.HasPrefix(s, firstSegment) {
			suggestions = append(suggestions, s)
			if len(suggestions) == maxSuggestions {
				return suggestions
			}
		}
	}
	if len(suggestions) > 0 {
		return suggestions
	}

	if len(rendered) > maxSuggestions {
		rendered = rendered[:maxSuggestions]
	}
	return rendered
}

// CollectSubtreeCandidates returns the cards at root, plus every descendant
// path when includeSubtree is set.
func CollectSubtreeCandidates(idx *TopicIndex, root TopicPath, includeSubtree bool) []Card {
	if !includeSubtree {
		return append([]Card(nil), idx.Cards(root)...)
	}

	var results []Card
	for _, path := range idx.paths {
		if path.HasPrefix(root) {
			results = append(results, idx.groups[path.key()]...)
		}
	}
	return results
}
