package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/engine"
	"github.com/knowledge-engine/rulebot/internal/storage"
)

var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "rulebot",
	Short: "Rule-based question answering over flashcard decks",
	Long: `rulebot answers free-text questions by retrieving the closest cards
from Anki deck exports. Ranking uses keyword overlap or TF-IDF cosine
similarity, optionally restricted to a topic subtree.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := logrus.ParseLevel(logLevel); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logging level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

func newLogger(cmd *cobra.Command, component string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger.WithField("service", component)
}

// loadEngine wires config, decks and the log store into a ready engine.
// The caller owns the returned store.
func loadEngine(cfg *config.Config, logger *logrus.Entry, opts engine.Options) (*engine.Engine, storage.LogStorage, error) {
	parser, err := config.LoadParserConfig(cfg.Data.ParserConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	tokenizer, err := parser.Tokenizer()
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	store := storage.NewFileLogStorage(cfg.Data.QueryLogPath, cfg.Data.InvalidLogPath)

	cards, parseMS, err := engine.LoadCards(cfg, logger, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	eng, err := engine.NewEngine(cfg, parser, logger.WithField("component", "engine"), store, cards, tokenizer, opts)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	eng.SetParseTime(parseMS)
	return eng, store, nil
}
