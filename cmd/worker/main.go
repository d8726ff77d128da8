package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vishun-Projects/Finance-sub000/internal/categorize"
	"github.com/Vishun-Projects/Finance-sub000/internal/config"
	infraBQ "github.com/Vishun-Projects/Finance-sub000/internal/infra/bigquery"
	"github.com/Vishun-Projects/Finance-sub000/internal/jobs/inmemory"
	"github.com/Vishun-Projects/Finance-sub000/internal/logger"
)

func main() {
	log := logger.New("worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	// In production, this would be replaced with Cloud Tasks or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	var rules *categorize.RuleTable
	if cfg.RulesPath != "" {
		rules, err = categorize.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load category rules")
		}
	} else {
		rules = categorize.NewRuleTable(nil)
	}

	orchestrator := categorize.NewOrchestrator(repo, rules, jobQueue, jobStore, log,
		categorize.WithPatternStore(repo),
		categorize.WithClassifier(categorize.NewGeminiClassifier(cfg.ModelName)),
		categorize.WithBackoff(cfg.RateLimitBackoff),
		categorize.WithMaxIterations(cfg.MaxClassifyIterations),
	)

	log.Info().Msg("Starting worker service")

	if err := jobQueue.Start(ctx, orchestrator.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
