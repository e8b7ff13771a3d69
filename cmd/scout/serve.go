package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scoutgraph/scout/config"
	"github.com/scoutgraph/scout/db"
	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
	"github.com/scoutgraph/scout/llm"
	"github.com/scoutgraph/scout/logger"
	"github.com/scoutgraph/scout/persist"
	"github.com/scoutgraph/scout/research"
	"github.com/scoutgraph/scout/retrieval"
	"github.com/scoutgraph/scout/scheduler"
	"github.com/scoutgraph/scout/server"
)

var (
	serveDBPath string
	servePort   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scout HTTP/WebSocket server",
	Long:  `Launch the Scout server: research endpoints, the graph state store, the idea scheduler, and the WebSocket update stream.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Database path (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if serveDBPath != "" {
		cfg.Database.Path = serveDBPath
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "scout.db"
	}

	if err := logger.Initialize(cfg.Server.JSONLogs); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	log := logger.Logger

	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, log); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	limiter := retrieval.NewLimiter(cfg.Research.RequestsPerMinute)
	searcher := retrieval.NewTavilyClient(cfg.Tavily, limiter, log.Named("tavily"))
	scraper := retrieval.NewFirecrawlClient(cfg.Firecrawl, limiter, log.Named("firecrawl"))

	var answerer retrieval.Answerer
	if perplexity := retrieval.NewPerplexityClient(cfg.Perplexity, limiter, log.Named("perplexity")); perplexity.IsConfigured() {
		answerer = perplexity
	} else {
		log.Warnw("Perplexity API key not configured, answer fallback disabled")
	}

	summarizer := llm.NewClient(cfg.LLM, log.Named("llm"))
	if !summarizer.IsConfigured() {
		log.Warnw("LLM API key not configured, research endpoints will fail")
	}

	store := graph.NewStore()
	researcher := research.New(summarizer, searcher, scraper, answerer, log.Named("research"))
	sched := scheduler.New(store, researcher, log.Named("scheduler"))
	docs := persist.NewStore(database, log.Named("persist"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg, store, researcher, sched, docs, log.Named("server"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Infow("Shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
