package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/deck"
	"github.com/knowledge-engine/rulebot/internal/search"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics found in the loaded decks",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	parser, err := config.LoadParserConfig(cfg.Data.ParserConfigPath)
	if err != nil {
		return err
	}

	cards, invalid, err := deck.LoadDecks(cfg.Data.DeckPath)
	if err != nil {
		return err
	}
	if len(invalid) > 0 {
		newLogger(cmd, "rulebot-topics").WithField("count", len(invalid)).Warn("Skipped invalid deck records")
	}

	out := cmd.OutOrStdout()
	topics := search.ListAvailableTopics(cards)
	if len(topics) == 0 {
		fmt.Fprintln(out, "No topics found.")
		return nil
	}
	for _, topic := range topics {
		fmt.Fprintln(out, topic.Join(parser.TopicSeparator))
	}
	return nil
}
