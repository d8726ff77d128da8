package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vishun-Projects/Finance-sub000/internal/api/handlers"
	"github.com/Vishun-Projects/Finance-sub000/internal/api/middleware"
	"github.com/Vishun-Projects/Finance-sub000/internal/archive"
	"github.com/Vishun-Projects/Finance-sub000/internal/categorize"
	"github.com/Vishun-Projects/Finance-sub000/internal/config"
	"github.com/Vishun-Projects/Finance-sub000/internal/ingest"
	"github.com/Vishun-Projects/Finance-sub000/internal/jobs/inmemory"
	"github.com/Vishun-Projects/Finance-sub000/internal/logger"
)

func main() {
	log := logger.New("api")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	repo, err := bigqueryRepo(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	// Job infrastructure: in-memory store + queue, workers in-process so
	// background categorization outlives the originating request.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	rules, err := loadRules(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	orchestrator := categorize.NewOrchestrator(repo, rules, jobQueue, jobStore, log,
		categorize.WithPatternStore(repo),
		categorize.WithClassifier(categorize.NewGeminiClassifier(cfg.ModelName)),
		categorize.WithBackoff(cfg.RateLimitBackoff),
		categorize.WithMaxIterations(cfg.MaxClassifyIterations),
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, orchestrator.HandleJob); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	validator := ingest.NewBalanceValidator()
	validator.WarnLimit = cfg.ReconWarnLimit
	validator.FailLimit = cfg.ReconFailLimit

	importerOpts := []ingest.ImporterOption{
		ingest.WithValidator(validator),
		ingest.WithNormalizer(&ingest.Normalizer{MinDate: cfg.DateMin, MaxDate: cfg.DateMax}),
		ingest.WithBackgroundThreshold(cfg.BackgroundThreshold),
	}
	if cfg.ArchiveBucket != "" {
		importerOpts = append(importerOpts, ingest.WithArchiver(archive.NewUploader(cfg.ArchiveBucket)))
	} else {
		log.Warn().Msg("No archive bucket configured - raw import payloads will not be archived")
	}
	importer := ingest.NewImporter(repo, orchestrator, orchestrator, log, importerOpts...)

	bulk := newBulkExecutor(repo, log)

	importHandler := handlers.NewImportHandler(importer, log)
	categorizationHandler := handlers.NewCategorizationHandler(orchestrator, log)
	bulkHandler := handlers.NewBulkHandler(bulk, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, log)
	categoriesHandler := handlers.NewCategoriesHandler(repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/import", importHandler.Import).Methods(http.MethodPost)
	api.HandleFunc("/categorization/status", categorizationHandler.Status).Methods(http.MethodPost)
	api.HandleFunc("/transactions/bulk", bulkHandler.Mutate).Methods(http.MethodPost)
	api.HandleFunc("/transactions", transactionsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/categories", categoriesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/jobs", jobsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", jobsHandler.Get).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(r),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight categorization jobs before closing the queue.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
