package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/engine"
	"github.com/knowledge-engine/rulebot/internal/search"
)

var (
	askAlgo           string
	askTopic          string
	askTopK           int
	askIncludeSubtree string
	askQuery          string
	askInteractive    bool
	askLog            string
	askInvalidLog     string
	askWarmup         int
	askShowCards      bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer questions from the loaded decks",
	Long: `Loads every deck, optionally narrows the candidates to a topic subtree
and ranks cards against the query with the selected algorithm.

Use --query for a single question or --interactive for a prompt that
reads questions until "exit".`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askAlgo, "algo", "", "retrieval algorithm: keyword or tfidf (default from RULEBOT_ALGORITHM)")
	askCmd.Flags().StringVar(&askTopic, "topic", "", `deck path to search, e.g. "Computing::Hardware" (default: all topics)`)
	askCmd.Flags().IntVar(&askTopK, "k", 1, "number of answers to return")
	askCmd.Flags().StringVar(&askIncludeSubtree, "include-subtree", "", "override include_subtree from the parser config (true or false)")
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "answer a single query and exit")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "start an interactive session")
	askCmd.Flags().StringVar(&askLog, "log", "", "append per-query JSON lines to this file")
	askCmd.Flags().StringVar(&askInvalidLog, "invalid-log", "", "path of the invalid record log (default from RULEBOT_INVALID_LOG)")
	askCmd.Flags().IntVar(&askWarmup, "warmup", 0, "number of warm-up queries before each timed query")
	askCmd.Flags().BoolVar(&askShowCards, "show-cards", false, "print GUIDs and scores for returned results")

	askCmd.MarkFlagsMutuallyExclusive("query", "interactive")
	askCmd.MarkFlagsOneRequired("query", "interactive")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	applyAskFlags(cmd, cfg)

	algo, err := search.ParseAlgorithm(cfg.Query.Algorithm)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Algorithm: algo,
		Topic:     askTopic,
		Warmup:    cfg.Query.Warmup,
	}
	if askIncludeSubtree != "" {
		include, err := strconv.ParseBool(askIncludeSubtree)
		if err != nil {
			return fmt.Errorf("--include-subtree must be true or false, got %q", askIncludeSubtree)
		}
		opts.IncludeSubtree = &include
	}

	eng, store, err := loadEngine(cfg, newLogger(cmd, "rulebot-ask"), opts)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	stats := eng.Snapshot()
	fmt.Fprintf(out, "Loaded %d cards; %d candidates in topic '%s'.\n", stats.DeckSize, stats.Candidates, stats.Topic)

	if askInteractive {
		if err := runInteractive(out, eng, cmd.InOrStdin(), cfg.Query.TopK); err != nil {
			return err
		}
	} else {
		answer(out, eng, askQuery, cfg.Query.TopK)
	}

	stats = eng.Snapshot()
	fmt.Fprintf(out, "Parse build: %.3f ms   Index build: %.3f ms\n", stats.ParseMS, stats.IndexMS)
	return nil
}

// applyAskFlags lets explicitly set flags win over environment config.
func applyAskFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("algo") {
		cfg.Query.Algorithm = askAlgo
	}
	if flags.Changed("k") {
		cfg.Query.TopK = askTopK
	}
	if flags.Changed("warmup") {
		cfg.Query.Warmup = askWarmup
	}
	if flags.Changed("log") {
		cfg.Data.QueryLogPath = askLog
	}
	if flags.Changed("invalid-log") {
		cfg.Data.InvalidLogPath = askInvalidLog
	}
}

func runInteractive(out io.Writer, eng *engine.Engine, in io.Reader, topK int) error {
	fmt.Fprintln(out, "Interactive mode. Type a question, or 'exit' to exit.")
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read query: %w", err)
		}
		text := strings.TrimSpace(line)
		if strings.EqualFold(text, "exit") {
			return nil
		}
		if text != "" {
			answer(out, eng, text, topK)
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "\nExiting.")
			return nil
		}
	}
}

func answer(out io.Writer, eng *engine.Engine, query string, topK int) {
	result := eng.Ask(query, topK)
	fmt.Fprintln(out, eng.FormatHits(result.Hits))
	if askShowCards {
		for _, hit := range result.Hits {
			fmt.Fprintf(out, "-> %s  score=%.6f\n", hit.GUID, hit.Score)
		}
	}
}
