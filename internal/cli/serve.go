package cli

import (
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/rulebot/internal/api"
	"github.com/knowledge-engine/rulebot/internal/config"
	"github.com/knowledge-engine/rulebot/internal/engine"
	"github.com/knowledge-engine/rulebot/internal/search"
)

var (
	serveAddr  string
	serveAlgo  string
	serveTopic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the retrieval engine over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from SERVER_ADDR)")
	serveCmd.Flags().StringVar(&serveAlgo, "algo", "", "retrieval algorithm: keyword or tfidf (default from RULEBOT_ALGORITHM)")
	serveCmd.Flags().StringVar(&serveTopic, "topic", "", "restrict the candidates to this deck path")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveAlgo != "" {
		cfg.Query.Algorithm = serveAlgo
	}

	algo, err := search.ParseAlgorithm(cfg.Query.Algorithm)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, "rulebot-api")
	logger.Info("Starting rulebot API service")

	eng, store, err := loadEngine(cfg, logger, engine.Options{
		Algorithm: algo,
		Topic:     serveTopic,
		Warmup:    cfg.Query.Warmup,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	server := api.NewServer(eng, logger)
	return server.Start(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
}
