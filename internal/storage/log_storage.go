package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knowledge-engine/rulebot/internal/deck"
)

// StageTimings holds per-stage durations in milliseconds.
type StageTimings struct {
	Parse      float64 `json:"parse"`
	Index      float64 `json:"index"`
	Preprocess float64 `json:"preproc"`
	Rank       float64 `json:"rank"`
	Format     float64 `json:"format"`
}

// TopHit is one returned GUID and its score.
type TopHit struct {
	GUID  string  `json:"guid"`
	Score float64 `json:"score"`
}

// QueryRecord is one JSON line in the query log.
type QueryRecord struct {
	Timestamp string       `json:"ts"`
	Language  string       `json:"lang"`
	Algorithm string       `json:"algo"`
	DeckSize  int          `json:"deck_size"`
	Topic     string       `json:"topic"`
	QueryID   string       `json:"query_id"`
	Query     string       `json:"query"`
	StageMS   StageTimings `json:"stage_ms"`
	WallMS    float64      `json:"wall_ms"`
	RSSKB     *uint64      `json:"rss_kb"`
	Top       []TopHit     `json:"top"`
}

// NewQueryRecord stamps a record with the current UTC time.
func NewQueryRecord(now time.Time) *QueryRecord {
	return &QueryRecord{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Language:  "go",
		Top:       make([]TopHit, 0),
	}
}

// LogStorage defines the interface for persisting query and validation logs
type LogStorage interface {
	AppendQuery(record *QueryRecord) error
	AppendInvalid(records []deck.InvalidRecord) error
	Close() error
}

// FileLogStorage appends records to files on the local file system.
// An empty path disables that log.
type FileLogStorage struct {
	queryPath   string
	invalidPath string
	mu          sync.Mutex
}

// NewFileLogStorage creates a file-backed log storage
func NewFileLogStorage(queryPath, invalidPath string) *FileLogStorage {
	return &FileLogStorage{
		queryPath:   queryPath,
		invalidPath: invalidPath,
	}
}

// AppendQuery writes the record as a single JSON line
func (fs *FileLogStorage) AppendQuery(record *QueryRecord) error {
	if fs.queryPath == "" {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal query record: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return appendLines(fs.queryPath, string(data))
}

// AppendInvalid writes each record as "<file>:<line>  <reason>" followed by the raw line
func (fs *FileLogStorage) AppendInvalid(records []deck.InvalidRecord) error {
	if fs.invalidPath == "" || len(records) == 0 {
		return nil
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s:%d  %s\n%s", r.File, r.Line, r.Reason, r.Raw))
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return appendLines(fs.invalidPath, lines...)
}

// Close is a no-op for file storage
func (fs *FileLogStorage) Close() error {
	return nil
}

func appendLines(path string, lines ...string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write log line: %w", err)
		}
	}
	return w.Flush()
}
