package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/deck"
	"github.com/knowledge-engine/rulebot/internal/engine"
	"github.com/knowledge-engine/rulebot/internal/search"
	"github.com/knowledge-engine/rulebot/internal/storage"
)

// Mocks

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AppendQuery(record *storage.QueryRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockStorage) AppendInvalid(records []deck.InvalidRecord) error {
	args := m.Called(records)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("test", "engine")
}

func testCards() []search.Card {
	return []search.Card{
		{GUID: "cpu", Question: "what does the cpu do", Answer: "Executes <b>instructions</b>", Topic: search.TopicPath{"Computing", "Hardware"}},
		{GUID: "ram", Question: "what is ram used for", Answer: "Working memory", Topic: search.TopicPath{"Computing", "Hardware", "Memory"}},
		{GUID: "tcp", Question: "what is tcp", Answer: "A transport protocol", Topic: search.TopicPath{"Computing", "Networks"}},
		{GUID: "war", Question: "when did the war end", Answer: "1945", Topic: search.TopicPath{"History"}},
	}
}

func newEngine(t *testing.T, store storage.LogStorage, opts engine.Options) *engine.Engine {
	t.Helper()
	cfg := config.Load()
	parser := config.DefaultParserConfig()
	tok := search.NewTokenizer(2, true, search.NewStopwords("what", "the", "is", "does", "for", "did"))
	eng, err := engine.NewEngine(cfg, parser, testLogger(), store, testCards(), tok, opts)
	require.NoError(t, err)
	return eng
}

func TestNewEngine_AllTopics(t *testing.T) {
	eng := newEngine(t, nil, engine.Options{Algorithm: search.AlgorithmKeyword})

	stats := eng.Snapshot()
	assert.Equal(t, engine.AllTopics, stats.Topic)
	assert.Equal(t, 4, stats.Candidates)
	assert.Equal(t, search.AlgorithmKeyword, eng.Retriever.Algorithm())
	assert.Nil(t, eng.LLM)
}

func TestNewEngine_TopicSubtree(t *testing.T) {
	eng := newEngine(t, nil, engine.Options{Algorithm: search.AlgorithmTFIDF, Topic: "Computing::Hardware"})
	assert.Len(t, eng.Candidates(), 2)

	exact := false
	eng = newEngine(t, nil, engine.Options{Algorithm: search.AlgorithmTFIDF, Topic: "Computing::Hardware", IncludeSubtree: &exact})
	assert.Len(t, eng.Candidates(), 1)

	assert.Len(t, eng.Topics(), 4)
}

func TestNewEngine_Errors(t *testing.T) {
	cfg := config.Load()
	parser := config.DefaultParserConfig()
	tok := search.NewTokenizer(2, false, nil)

	_, err := engine.NewEngine(cfg, parser, testLogger(), nil, nil, tok, engine.Options{Algorithm: search.AlgorithmKeyword})
	assert.ErrorIs(t, err, engine.ErrNoCards)

	_, err = engine.NewEngine(cfg, parser, testLogger(), nil, testCards(), tok, engine.Options{Algorithm: search.AlgorithmKeyword, Topic: "Biology"})
	assert.ErrorIs(t, err, search.ErrUnknownTopic)

	// only paths that hold cards are selectable
	_, err = engine.NewEngine(cfg, parser, testLogger(), nil, testCards(), tok, engine.Options{Algorithm: search.AlgorithmKeyword, Topic: "Computing"})
	var topicErr *search.TopicError
	require.ErrorAs(t, err, &topicErr)
	assert.Contains(t, topicErr.Suggestions, "Computing::Hardware")

	_, err = engine.NewEngine(cfg, parser, testLogger(), nil, testCards(), tok, engine.Options{Algorithm: "bm25"})
	assert.Error(t, err)
}

func TestEngine_AskRecordsQuery(t *testing.T) {
	store := new(MockStorage)
	store.On("AppendQuery", mock.MatchedBy(func(r *storage.QueryRecord) bool {
		return r.Algorithm == "keyword" && r.Query == "cpu" && r.Topic == engine.AllTopics &&
			len(r.Top) == 1 && r.Top[0].GUID == "cpu" && r.Language == "go"
	})).Return(nil)

	eng := newEngine(t, store, engine.Options{Algorithm: search.AlgorithmKeyword, Warmup: 2})
	result := eng.Ask("cpu", 3)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "cpu", result.Hits[0].GUID)
	assert.NotEmpty(t, result.QueryID)
	assert.Equal(t, int64(1), eng.Snapshot().Queries)
	store.AssertExpectations(t)
}

func TestEngine_AskStorageFailureIsNotFatal(t *testing.T) {
	store := new(MockStorage)
	store.On("AppendQuery", mock.Anything).Return(errors.New("disk full"))

	eng := newEngine(t, store, engine.Options{Algorithm: search.AlgorithmTFIDF})
	result := eng.Ask("tcp", 1)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "tcp", result.Hits[0].GUID)
}

func TestEngine_FormatHits(t *testing.T) {
	eng := newEngine(t, nil, engine.Options{Algorithm: search.AlgorithmKeyword})

	assert.Equal(t, "No results.", eng.FormatHits(nil))

	out := eng.FormatHits(eng.Ask("cpu", 1).Hits)
	assert.Contains(t, out, "1. GUID=cpu  score=1.000000  topic=Computing::Hardware")
	assert.Contains(t, out, "   Q: what does the cpu do")
	assert.Contains(t, out, "   A: Executes &lt;b&gt;instructions&lt;/b&gt;")
}

func TestEngine_GenerateAnswer(t *testing.T) {
	eng := newEngine(t, nil, engine.Options{Algorithm: search.AlgorithmTFIDF})

	_, err := eng.GenerateAnswer(context.Background(), "what is ram")
	assert.ErrorIs(t, err, engine.ErrNoProvider)

	mockLLM := new(MockLLMProvider)
	eng.LLM = mockLLM

	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "what is ram used for") && strings.Contains(prompt, "Working memory")
	})).Return("RAM is working memory.", nil)

	answer, err := eng.GenerateAnswer(context.Background(), "what is ram")
	assert.NoError(t, err)
	assert.Equal(t, "RAM is working memory.", answer)

	mockLLM.AssertExpectations(t)
}

func TestLoadCards(t *testing.T) {
	dir := t.TempDir()
	deckFile := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(deckFile, []byte("g1\tBasic\tA\tQuestion\tAnswer\nbad line\n"), 0644))

	cfg := config.Load()
	cfg.Data.DeckPath = dir

	store := new(MockStorage)
	store.On("AppendInvalid", mock.MatchedBy(func(r []deck.InvalidRecord) bool { return len(r) == 1 })).Return(nil)

	cards, parseMS, err := engine.LoadCards(cfg, testLogger(), store)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.GreaterOrEqual(t, parseMS, 0.0)
	store.AssertExpectations(t)

	cfg.Data.DeckPath = filepath.Join(dir, "missing")
	_, _, err = engine.LoadCards(cfg, testLogger(), store)
	assert.Error(t, err)
}
