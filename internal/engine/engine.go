package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/deck"
	"github.com/knowledge-engine/rulebot/internal/provider"
	"github.com/knowledge-engine/rulebot/internal/search"
	"github.com/knowledge-engine/rulebot/internal/storage"
)

// AllTopics labels a session that searches every card.
const AllTopics = "<ALL>"

const generateContextSize = 3

var (
	ErrNoCards      = errors.New("no valid cards were loaded; check the data path and deck format")
	ErrNoCandidates = errors.New("no candidate cards found for the requested topic")
	ErrNoProvider   = errors.New("no llm provider configured")
)

// Options selects the candidate pool and scoring algorithm of a session.
type Options struct {
	Algorithm search.Algorithm
	// Topic is resolved against the loaded decks; empty searches everything.
	Topic string
	// IncludeSubtree overrides the parser config when set.
	IncludeSubtree *bool
	Warmup         int
}

// Engine answers queries against one prepared candidate pool
type Engine struct {
	Config    *config.Config
	Parser    config.ParserConfig
	Logger    *logrus.Entry
	Storage   storage.LogStorage
	Retriever search.Retriever
	LLM       provider.LLMProvider

	cards      []search.Card
	candidates []search.Card
	guidIndex  map[string]search.Card
	topicLabel string
	warmup     int

	mu    sync.RWMutex
	Stats EngineStats
}

type EngineStats struct {
	Algorithm  search.Algorithm
	DeckSize   int
	Candidates int
	Topic      string
	ParseMS    float64
	IndexMS    float64
	Queries    int64
	StartTime  time.Time
}

// Result is the outcome of a single query.
type Result struct {
	QueryID string
	Hits    []search.AnswerHit
	Stages  storage.StageTimings
	WallMS  float64
}

// LoadCards reads all decks under cfg.Data.DeckPath and records invalid lines.
// It returns the cards and the parse time in milliseconds.
func LoadCards(cfg *config.Config, logger *logrus.Entry, store storage.LogStorage) ([]search.Card, float64, error) {
	start := time.Now()
	cards, invalid, err := deck.LoadDecks(cfg.Data.DeckPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load decks: %w", err)
	}
	parseMS := millis(time.Since(start))

	if len(invalid) > 0 {
		logger.WithField("count", len(invalid)).Warn("Skipped invalid deck records")
		if store != nil {
			if err := store.AppendInvalid(invalid); err != nil {
				logger.WithError(err).Error("Failed to write invalid record log")
			}
		}
	}

	logger.WithFields(logrus.Fields{"cards": len(cards), "parse_ms": parseMS}).Info("Loaded decks")
	return cards, parseMS, nil
}

// NewEngine selects candidates for opts.Topic and builds the index for opts.Algorithm.
func NewEngine(cfg *config.Config, parser config.ParserConfig, logger *logrus.Entry, store storage.LogStorage,
	cards []search.Card, tokenizer search.Tokenizer, opts Options) (*Engine, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	candidates := cards
	topicLabel := AllTopics
	if strings.TrimSpace(opts.Topic) != "" {
		root, err := search.ResolveTopicString(opts.Topic, parser.TopicSeparator, search.ListAvailableTopics(cards))
		if err != nil {
			return nil, err
		}
		includeSubtree := parser.IncludeSubtree
		if opts.IncludeSubtree != nil {
			includeSubtree = *opts.IncludeSubtree
		}
		candidates = search.CollectSubtreeCandidates(search.BuildTopicIndex(cards), root, includeSubtree)
		if len(candidates) == 0 {
			return nil, ErrNoCandidates
		}
		topicLabel = opts.Topic
	}

	start := time.Now()
	retriever, err := search.NewRetriever(opts.Algorithm, candidates, tokenizer)
	if err != nil {
		return nil, err
	}
	indexMS := millis(time.Since(start))

	logger.WithFields(logrus.Fields{
		"algorithm":  opts.Algorithm,
		"cards":      len(cards),
		"candidates": len(candidates),
		"topic":      topicLabel,
		"index_ms":   indexMS,
	}).Info("Built retrieval index")

	var llm provider.LLMProvider
	if cfg != nil {
		llm, err = provider.New(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		Config:     cfg,
		Parser:     parser,
		Logger:     logger,
		Storage:    store,
		Retriever:  retriever,
		LLM:        llm,
		cards:      cards,
		candidates: candidates,
		guidIndex:  deck.BuildGUIDIndex(candidates),
		topicLabel: topicLabel,
		warmup:     opts.Warmup,
		Stats: EngineStats{
			Algorithm:  opts.Algorithm,
			DeckSize:   len(cards),
			Candidates: len(candidates),
			Topic:      topicLabel,
			IndexMS:    indexMS,
			StartTime:  time.Now(),
		},
	}, nil
}

// SetParseTime records how long deck loading took for status reporting.
func (e *Engine) SetParseTime(ms float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Stats.ParseMS = ms
}

// Snapshot returns a copy of the current statistics.
func (e *Engine) Snapshot() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Stats
}

// Candidates returns the cards the index was built over.
func (e *Engine) Candidates() []search.Card {
	return e.candidates
}

// Topics lists every topic in the loaded decks, not just the candidate pool.
func (e *Engine) Topics() []search.TopicPath {
	return search.ListAvailableTopics(e.cards)
}

// Ask ranks the candidates for query and appends a query-log record.
func (e *Engine) Ask(query string, topK int) *Result {
	for i := 0; i < e.warmup; i++ {
		_ = e.Retriever.Search("warmup", topK)
	}

	wallStart := time.Now()
	rankStart := time.Now()
	hits := e.Retriever.Search(query, topK)
	rankMS := millis(time.Since(rankStart))
	wallMS := millis(time.Since(wallStart))

	result := &Result{
		QueryID: uuid.NewString(),
		Hits:    hits,
		Stages:  storage.StageTimings{Rank: rankMS},
		WallMS:  wallMS,
	}

	e.mu.Lock()
	e.Stats.Queries++
	e.mu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"query_id": result.QueryID,
		"hits":     len(hits),
		"rank_ms":  rankMS,
	}).Debug("Answered query")

	if e.Storage != nil {
		record := storage.NewQueryRecord(time.Now())
		record.Algorithm = string(e.Retriever.Algorithm())
		record.DeckSize = len(e.candidates)
		record.Topic = e.topicLabel
		record.QueryID = result.QueryID
		record.Query = query
		record.StageMS = result.Stages
		record.WallMS = wallMS
		for _, hit := range hits {
			record.Top = append(record.Top, storage.TopHit{GUID: hit.GUID, Score: hit.Score})
		}
		if err := e.Storage.AppendQuery(record); err != nil {
			e.Logger.WithError(err).Error("Failed to save query record")
		}
	}

	return result
}

// Card looks up a candidate card by GUID.
func (e *Engine) Card(guid string) (search.Card, bool) {
	card, ok := e.guidIndex[guid]
	return card, ok
}

// FormatHits renders ranked hits with their question and escaped answer.
func (e *Engine) FormatHits(hits []search.AnswerHit) string {
	if len(hits) == 0 {
		return "No results."
	}

	var lines []string
	for i, hit := range hits {
		card, ok := e.guidIndex[hit.GUID]
		if !ok {
			continue
		}
		question := hit.Preview
		if question == "" {
			question = card.Question
		}
		lines = append(lines,
			fmt.Sprintf("%d. GUID=%s  score=%.6f  topic=%s", i+1, hit.GUID, hit.Score, hit.Topic.Join(e.Parser.TopicSeparator)),
			fmt.Sprintf("   Q: %s", question),
			fmt.Sprintf("   A: %s", deck.NormaliseForDisplay(card.Answer)),
		)
	}
	return strings.Join(lines, "\n")
}

// GenerateAnswer performs the full RAG flow: Search -> Build Prompt -> LLM Generation
func (e *Engine) GenerateAnswer(ctx context.Context, query string) (string, error) {
	if e.LLM == nil {
		return "", ErrNoProvider
	}

	// 1. Retrieve Context
	hits := e.Retriever.Search(query, generateContextSize)
	cards := make([]provider.CardContext, 0, len(hits))
	for _, hit := range hits {
		card, ok := e.guidIndex[hit.GUID]
		if !ok {
			continue
		}
		cards = append(cards, provider.CardContext{
			Question: card.Question,
			Answer:   deck.StripHTML(card.Answer),
			Topic:    card.Topic.Join(e.Parser.TopicSeparator),
		})
	}

	// 2. Build Prompt
	prompt := provider.BuildPrompt(query, cards)

	// 3. Call LLM
	answer, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", e.LLM.Name(), err)
	}
	return answer, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
