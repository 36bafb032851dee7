package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/knowledge-engine/rulebot/internal/search"
)

// ParserConfig controls tokenisation and topic handling.
type ParserConfig struct {
	MinTokenLength  int
	RemoveStopwords bool
	StopwordsPath   string
	TopicSeparator  string
	IncludeSubtree  bool
}

// DefaultParserConfig mirrors the values used when Parser.json omits a key.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		MinTokenLength:  2,
		RemoveStopwords: true,
		StopwordsPath:   "Stopwords.txt",
		TopicSeparator:  "::",
		IncludeSubtree:  true,
	}
}

// LoadParserConfig reads Parser.json. Keys are nested under tokenisation
// and topic; RULEBOT_* environment variables override them.
// A missing file yields the defaults.
func LoadParserConfig(path string) (ParserConfig, error) {
	v := viper.New()
	setParserDefaults(v)

	v.SetEnvPrefix("RULEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// short aliases for the settings people override most
	_ = v.BindEnv("tokenisation.min_token_length", "RULEBOT_MIN_TOKEN_LENGTH")
	_ = v.BindEnv("tokenisation.remove_stopwords", "RULEBOT_REMOVE_STOPWORDS")
	_ = v.BindEnv("topic.separator", "RULEBOT_TOPIC_SEPARATOR")
	_ = v.BindEnv("topic.include_subtree", "RULEBOT_INCLUDE_SUBTREE")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return ParserConfig{}, fmt.Errorf("failed to read parser config %s: %w", path, err)
			}
		}
	}

	cfg := ParserConfig{
		MinTokenLength:  v.GetInt("tokenisation.min_token_length"),
		RemoveStopwords: v.GetBool("tokenisation.remove_stopwords"),
		StopwordsPath:   v.GetString("tokenisation.stopwords_path"),
		TopicSeparator:  v.GetString("topic.separator"),
		IncludeSubtree:  v.GetBool("topic.include_subtree"),
	}

	if err := cfg.Validate(); err != nil {
		return ParserConfig{}, err
	}

	// relative stopword files live next to Parser.json, whatever directory prefix they carry
	if path != "" && cfg.StopwordsPath != "" && !filepath.IsAbs(cfg.StopwordsPath) {
		cfg.StopwordsPath = filepath.Join(filepath.Dir(path), filepath.Base(cfg.StopwordsPath))
	}
	return cfg, nil
}

func setParserDefaults(v *viper.Viper) {
	d := DefaultParserConfig()
	v.SetDefault("tokenisation.min_token_length", d.MinTokenLength)
	v.SetDefault("tokenisation.remove_stopwords", d.RemoveStopwords)
	v.SetDefault("tokenisation.stopwords_path", d.StopwordsPath)
	v.SetDefault("topic.separator", d.TopicSeparator)
	v.SetDefault("topic.include_subtree", d.IncludeSubtree)
}

// Validate rejects settings the tokenizer and topic index cannot work with.
func (c ParserConfig) Validate() error {
	if c.MinTokenLength < 1 {
		return fmt.Errorf("min_token_length must be a positive integer, got %d", c.MinTokenLength)
	}
	if c.TopicSeparator == "" {
		return errors.New("topic.separator must be a non-empty string")
	}
	if c.RemoveStopwords && c.StopwordsPath == "" {
		return errors.New("stopwords_path is required when remove_stopwords=true")
	}
	return nil
}

// LoadStopwords reads one word per line; blank lines and # comments are skipped.
func LoadStopwords(path string) (search.Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stopwords at %s: %w", path, err)
	}
	defer f.Close()

	stopwords := search.Stopwords{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stopwords[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan stopwords: %w", err)
	}
	return stopwords, nil
}

// Tokenizer builds the tokenizer described by the config. Stopwords are only
// loaded when removal is enabled.
func (c ParserConfig) Tokenizer() (search.Tokenizer, error) {
	if !c.RemoveStopwords {
		return search.NewTokenizer(c.MinTokenLength, false, nil), nil
	}
	stopwords, err := LoadStopwords(c.StopwordsPath)
	if err != nil {
		return search.Tokenizer{}, err
	}
	return search.NewTokenizer(c.MinTokenLength, true, stopwords), nil
}
