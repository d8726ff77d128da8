package config

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("requires project id", func(t *testing.T) {
		t.Setenv("BQ_PROJECT_ID", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BQ_PROJECT_ID")
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("BQ_PROJECT_ID", "proj")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "proj", cfg.ProjectID)
		assert.Equal(t, "finance", cfg.DatasetID)
		assert.Equal(t, "gemini-2.5-flash", cfg.ModelName)
		assert.True(t, cfg.ReconWarnLimit.Equal(decimal.RequireFromString("0.01")))
		assert.True(t, cfg.ReconFailLimit.Equal(decimal.RequireFromString("1")))
		assert.Equal(t, 100, cfg.BackgroundThreshold)
		assert.Equal(t, 40*time.Second, cfg.RateLimitBackoff)
		assert.Equal(t, 50, cfg.MaxClassifyIterations)
		assert.Equal(t, civil.Date{Year: 2020, Month: time.January, Day: 1}, cfg.DateMin)
		assert.Equal(t, civil.Date{Year: time.Now().Year() + 1, Month: time.December, Day: 31}, cfg.DateMax)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("BQ_PROJECT_ID", "proj")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("BQ_DATASET_ID", "finance_test")
		t.Setenv("RECON_WARN_LIMIT", "0.05")
		t.Setenv("RECON_FAIL_LIMIT", "5")
		t.Setenv("BACKGROUND_THRESHOLD", "25")
		t.Setenv("RATE_LIMIT_BACKOFF", "5s")
		t.Setenv("MAX_CLASSIFY_ITERATIONS", "10")
		t.Setenv("DATE_MIN", "2018-06-01")
		t.Setenv("DATE_MAX", "2030-12-31")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "finance_test", cfg.DatasetID)
		assert.True(t, cfg.ReconWarnLimit.Equal(decimal.RequireFromString("0.05")))
		assert.True(t, cfg.ReconFailLimit.Equal(decimal.RequireFromString("5")))
		assert.Equal(t, 25, cfg.BackgroundThreshold)
		assert.Equal(t, 5*time.Second, cfg.RateLimitBackoff)
		assert.Equal(t, 10, cfg.MaxClassifyIterations)
		assert.Equal(t, civil.Date{Year: 2018, Month: time.June, Day: 1}, cfg.DateMin)
		assert.Equal(t, civil.Date{Year: 2030, Month: time.December, Day: 31}, cfg.DateMax)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		tests := []struct {
			key   string
			value string
		}{
			{"RECON_WARN_LIMIT", "abc"},
			{"RECON_FAIL_LIMIT", "1.2.3"},
			{"BACKGROUND_THRESHOLD", "0"},
			{"BACKGROUND_THRESHOLD", "many"},
			{"RATE_LIMIT_BACKOFF", "-1s"},
			{"MAX_CLASSIFY_ITERATIONS", "-5"},
			{"DATE_MIN", "01/01/2020"},
			{"DATE_MAX", "not-a-date"},
		}
		for _, tt := range tests {
			t.Run(tt.key+"="+tt.value, func(t *testing.T) {
				t.Setenv("BQ_PROJECT_ID", "proj")
				t.Setenv(tt.key, tt.value)
				_, err := Load()
				require.Error(t, err)
			})
		}
	})

	t.Run("inverted date window rejected", func(t *testing.T) {
		t.Setenv("BQ_PROJECT_ID", "proj")
		t.Setenv("DATE_MIN", "2025-01-01")
		t.Setenv("DATE_MAX", "2024-01-01")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATE_MAX")
	})
}
