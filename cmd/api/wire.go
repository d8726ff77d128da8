package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Vishun-Projects/Finance-sub000/internal/categorize"
	"github.com/Vishun-Projects/Finance-sub000/internal/config"
	infraBQ "github.com/Vishun-Projects/Finance-sub000/internal/infra/bigquery"
	"github.com/Vishun-Projects/Finance-sub000/internal/mutate"
)

func bigqueryRepo(ctx context.Context, cfg *config.Config) (*infraBQ.Repository, error) {
	return infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.DatasetID)
}

func loadRules(cfg *config.Config, log zerolog.Logger) (*categorize.RuleTable, error) {
	if cfg.RulesPath == "" {
		log.Warn().Msg("No rules file configured - rule-based categorization disabled")
		return categorize.NewRuleTable(nil), nil
	}
	rules, err := categorize.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rules", rules.Len()).Str("path", cfg.RulesPath).Msg("Loaded category rules")
	return rules, nil
}

func newBulkExecutor(repo *infraBQ.Repository, log zerolog.Logger) *mutate.Executor {
	return mutate.NewExecutor(repo, log)
}
