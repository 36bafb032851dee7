package provider

import (
	"context"
	"fmt"
	"strings"
)

// LLMProvider defines the interface for AI model integration
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// SystemPrompt keeps the model inside the retrieved flashcards.
const SystemPrompt = "You are a study assistant. Answer the student's question using only the flashcards " +
	"in the prompt. If the flashcards do not cover the question, say so clearly. Keep answers short."

// generationTemperature is low so answers stay close to the card text.
const generationTemperature = 0.2

// CardContext is a retrieved flashcard passed to the model as grounding.
type CardContext struct {
	Question string
	Answer   string
	Topic    string
}

// New returns the provider named by kind, or nil when kind is "" or "none".
func New(kind, baseURL, model, apiKey string) (LLMProvider, error) {
	switch strings.ToLower(kind) {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider selected but LLM_API_KEY not set")
		}
		return NewOpenAIProvider(baseURL, model, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", kind)
	}
}

// BuildPrompt grounds the question in the retrieved cards.
func BuildPrompt(query string, cards []CardContext) string {
	var context strings.Builder
	if len(cards) == 0 {
		context.WriteString("No matching flashcards were found.\n")
	}
	for i, c := range cards {
		fmt.Fprintf(&context, "%d. [%s]\n   Q: %s\n   A: %s\n", i+1, c.Topic, c.Question, c.Answer)
	}

	return "FLASHCARDS:\n" + context.String() + "\n" +
		"STUDENT QUESTION:\n" + query + "\n\n" +
		"RESPONSE:\n"
}
