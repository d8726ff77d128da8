// Package config loads service configuration from the environment. A .env
// file, when present, is loaded first so local development does not need
// exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// ProjectID and DatasetID locate the BigQuery store.
	ProjectID string
	DatasetID string

	// ArchiveBucket, when set, enables GCS archiving of raw import payloads.
	ArchiveBucket string

	// RulesPath, when set, points at the YAML category rule table.
	RulesPath string

	// ModelName is the Gemini model used for AI categorization.
	ModelName string

	// ReconWarnLimit is the closing-balance discrepancy treated as a match;
	// ReconFailLimit is the cutoff above which reconciliation fails hard.
	ReconWarnLimit decimal.Decimal
	ReconFailLimit decimal.Decimal

	// DateMin and DateMax bound the transaction dates normalization accepts.
	DateMin civil.Date
	DateMax civil.Date

	// BackgroundThreshold is the batch size at which categorization moves to
	// a background job.
	BackgroundThreshold int

	// RateLimitBackoff is the sleep before retrying a rate-limited AI call.
	RateLimitBackoff time.Duration

	// MaxClassifyIterations bounds the classify/backoff loop per run.
	MaxClassifyIterations int
}

// Load reads configuration from the environment, applying defaults for
// everything except the BigQuery project.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully exported.
	_ = godotenv.Load()

	projectID := os.Getenv("BQ_PROJECT_ID")
	if projectID == "" {
		return nil, fmt.Errorf("BQ_PROJECT_ID environment variable is required")
	}

	cfg := &Config{
		Port:                  envOr("SERVER_PORT", "8080"),
		ProjectID:             projectID,
		DatasetID:             envOr("BQ_DATASET_ID", "finance"),
		ArchiveBucket:         os.Getenv("ARCHIVE_BUCKET"),
		RulesPath:             os.Getenv("CATEGORY_RULES_PATH"),
		ModelName:             envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		ReconWarnLimit:        decimal.New(1, -2),
		ReconFailLimit:        decimal.New(1, 0),
		DateMin:               civil.Date{Year: 2020, Month: time.January, Day: 1},
		DateMax:               civil.Date{Year: time.Now().Year() + 1, Month: time.December, Day: 31},
		BackgroundThreshold:   100,
		RateLimitBackoff:      40 * time.Second,
		MaxClassifyIterations: 50,
	}

	if v := os.Getenv("RECON_WARN_LIMIT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECON_WARN_LIMIT %q: %w", v, err)
		}
		cfg.ReconWarnLimit = d
	}
	if v := os.Getenv("RECON_FAIL_LIMIT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECON_FAIL_LIMIT %q: %w", v, err)
		}
		cfg.ReconFailLimit = d
	}
	if v := os.Getenv("DATE_MIN"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DATE_MIN %q: %w", v, err)
		}
		cfg.DateMin = d
	}
	if v := os.Getenv("DATE_MAX"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DATE_MAX %q: %w", v, err)
		}
		cfg.DateMax = d
	}
	if cfg.DateMax.Before(cfg.DateMin) {
		return nil, fmt.Errorf("DATE_MAX %s precedes DATE_MIN %s", cfg.DateMax, cfg.DateMin)
	}
	if v := os.Getenv("BACKGROUND_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BACKGROUND_THRESHOLD %q", v)
		}
		cfg.BackgroundThreshold = n
	}
	if v := os.Getenv("RATE_LIMIT_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BACKOFF %q", v)
		}
		cfg.RateLimitBackoff = d
	}
	if v := os.Getenv("MAX_CLASSIFY_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_CLASSIFY_ITERATIONS %q", v)
		}
		cfg.MaxClassifyIterations = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
