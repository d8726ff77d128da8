package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/Vishun-Projects/Finance-sub000/internal/archive"
	"github.com/Vishun-Projects/Finance-sub000/internal/categorize"
	"github.com/Vishun-Projects/Finance-sub000/internal/config"
	infraBQ "github.com/Vishun-Projects/Finance-sub000/internal/infra/bigquery"
	"github.com/Vishun-Projects/Finance-sub000/internal/ingest"
	"github.com/Vishun-Projects/Finance-sub000/internal/logger"
)

// Imports a statement payload from a local JSON file. The file holds the same
// body the POST /api/import endpoint accepts. Categorization always runs
// inline here since the process exits when the import finishes.
func main() {
	var (
		file    = flag.String("file", "", "Path to the import request JSON file")
		timeout = flag.Duration("timeout", 10*time.Minute, "Overall import timeout")
	)
	flag.Parse()

	log := logger.New("import")

	if *file == "" {
		log.Fatal().Msg("Usage: import -file <request.json>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read request file")
	}

	var req ingest.ImportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse request file")
	}
	if req.UserID == "" {
		log.Fatal().Msg("Request file must set userId")
	}
	req.CategorizeInBackground = false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	var rules *categorize.RuleTable
	if cfg.RulesPath != "" {
		rules, err = categorize.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load category rules")
		}
	} else {
		rules = categorize.NewRuleTable(nil)
	}

	orchestrator := categorize.NewOrchestrator(repo, rules, nil, nil, log,
		categorize.WithPatternStore(repo),
		categorize.WithClassifier(categorize.NewGeminiClassifier(cfg.ModelName)),
		categorize.WithBackoff(cfg.RateLimitBackoff),
		categorize.WithMaxIterations(cfg.MaxClassifyIterations),
	)

	validator := ingest.NewBalanceValidator()
	validator.WarnLimit = cfg.ReconWarnLimit
	validator.FailLimit = cfg.ReconFailLimit

	opts := []ingest.ImporterOption{
		ingest.WithValidator(validator),
		ingest.WithNormalizer(&ingest.Normalizer{MinDate: cfg.DateMin, MaxDate: cfg.DateMax}),
	}
	if cfg.ArchiveBucket != "" {
		opts = append(opts, ingest.WithArchiver(archive.NewUploader(cfg.ArchiveBucket)))
	}
	importer := ingest.NewImporter(repo, orchestrator, nil, log, opts...)

	resp, err := importer.Import(ctx, &req)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render response")
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if resp.BalanceValidationResult != nil && !resp.BalanceValidationResult.IsValid {
		log.Error().Msg("Import blocked by balance validation")
		os.Exit(1)
	}
	log.Info().
		Int("inserted", resp.Inserted).
		Int("duplicates", resp.Duplicates).
		Msg("Import completed")
}
