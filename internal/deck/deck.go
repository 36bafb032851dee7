package deck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knowledge-engine/rulebot/internal/search"
)

const (
	columnDelimiter = "\t"
	pathSeparator   = "::"
	minColumns      = 5
)

// InvalidRecord describes a deck line that failed validation.
type InvalidRecord struct {
	File   string
	Line   int
	Reason string
	Raw    string
}

// ListDeckFiles returns path itself when it is a file, otherwise the sorted
// .txt files directly inside it.
func ListDeckFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat data path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadDeckFile parses one Anki tab-separated export.
// Columns: 0 GUID, 2 deck path, 3 question HTML, 4 answer HTML.
func ReadDeckFile(path string) ([]search.Card, []InvalidRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read deck file %s: %w", path, err)
	}

	var cards []search.Card
	var invalid []InvalidRecord

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reject := func(reason string) {
			invalid = append(invalid, InvalidRecord{File: path, Line: i + 1, Reason: reason, Raw: line})
		}

		columns := strings.Split(line, columnDelimiter)
		if len(columns) < minColumns {
			reject(fmt.Sprintf("Expected at least %d columns, found %d", minColumns, len(columns)))
			continue
		}

		guid := strings.TrimSpace(columns[0])
		deckPath := strings.TrimSpace(columns[2])
		questionHTML := strings.TrimSpace(columns[3])
		answerHTML := strings.TrimSpace(columns[4])

		if guid == "" {
			reject("Empty GUID")
			continue
		}
		if questionHTML == "" || answerHTML == "" {
			reject("Empty question or answer")
			continue
		}

		cards = append(cards, search.Card{
			GUID:     guid,
			Question: NormaliseForMatching(questionHTML),
			Answer:   answerHTML,
			Topic:    search.ParseTopicPath(deckPath, pathSeparator),
		})
	}

	return cards, invalid, nil
}

// LoadDecks reads every deck under path. Unreadable files are reported as
// invalid records with line 0 rather than aborting the load.
func LoadDecks(path string) ([]search.Card, []InvalidRecord, error) {
	files, err := ListDeckFiles(path)
	if err != nil {
		return nil, nil, err
	}

	var cards []search.Card
	var invalid []InvalidRecord
	for _, file := range files {
		c, bad, err := ReadDeckFile(file)
		if err != nil {
			invalid = append(invalid, InvalidRecord{
				File:   file,
				Reason: fmt.Sprintf("Unreadable file: %v", err),
			})
			continue
		}
		cards = append(cards, c...)
		invalid = append(invalid, bad...)
	}
	return cards, invalid, nil
}

// BuildGUIDIndex maps each GUID to its card.
func BuildGUIDIndex(cards []search.Card) map[string]search.Card {
	index := make(map[string]search.Card, len(cards))
	for _, card := range cards {
		index[card.GUID] = card
	}
	return index
}
