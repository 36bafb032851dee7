package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/rulebot/internal/deck"
	"github.com/knowledge-engine/rulebot/internal/storage"
)

func TestFileLogStorage_AppendQuery(t *testing.T) {
	dir := t.TempDir()
	queryLog := filepath.Join(dir, "nested", "queries.jsonl")
	fs := storage.NewFileLogStorage(queryLog, "")

	record := storage.NewQueryRecord(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	record.Algorithm = "tfidf"
	record.DeckSize = 12
	record.Topic = "<ALL>"
	record.QueryID = "q-1"
	record.Query = "what is a cpu"
	record.StageMS.Rank = 0.25
	record.Top = append(record.Top, storage.TopHit{GUID: "g1", Score: 0.5})

	require.NoError(t, fs.AppendQuery(record))
	require.NoError(t, fs.AppendQuery(record))

	data, err := os.ReadFile(queryLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "2024-01-02T03:04:05Z", decoded["ts"])
	assert.Equal(t, "go", decoded["lang"])
	assert.Equal(t, "tfidf", decoded["algo"])
	assert.Nil(t, decoded["rss_kb"])
	assert.Equal(t, 0.25, decoded["stage_ms"].(map[string]any)["rank"])
	assert.Equal(t, "g1", decoded["top"].([]any)[0].(map[string]any)["guid"])
}

func TestFileLogStorage_AppendInvalid(t *testing.T) {
	dir := t.TempDir()
	invalidLog := filepath.Join(dir, "errors.log")
	fs := storage.NewFileLogStorage("", invalidLog)

	err := fs.AppendInvalid([]deck.InvalidRecord{
		{File: "deck.txt", Line: 4, Reason: "Empty GUID", Raw: "\tBasic\tA\tQ\tA"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(invalidLog)
	require.NoError(t, err)
	assert.Equal(t, "deck.txt:4  Empty GUID\n\tBasic\tA\tQ\tA\n", string(data))
}

func TestFileLogStorage_DisabledPaths(t *testing.T) {
	fs := storage.NewFileLogStorage("", "")

	assert.NoError(t, fs.AppendQuery(storage.NewQueryRecord(time.Now())))
	assert.NoError(t, fs.AppendInvalid([]deck.InvalidRecord{{File: "x"}}))
	assert.NoError(t, fs.Close())
}
