// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts import requests by outcome (completed, blocked, failed).
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_imports_total",
		Help: "Number of statement import requests by outcome.",
	}, []string{"outcome"})

	// TransactionsInserted counts persisted transactions.
	TransactionsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finance_transactions_inserted_total",
		Help: "Number of transactions persisted by the import pipeline.",
	})

	// DuplicatesSkipped counts rows excluded by deduplication.
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finance_duplicates_skipped_total",
		Help: "Number of duplicate rows excluded from persistence.",
	})

	// RowsRejected counts rows the normalizer rejected.
	RowsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finance_rows_rejected_total",
		Help: "Number of raw rows rejected during normalization.",
	})

	// CategorizedTotal counts category assignments by stage (rule, pattern, ai).
	CategorizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_categorized_total",
		Help: "Number of transactions categorized by stage.",
	}, []string{"stage"})

	// RateLimitHits counts upstream classifier rate-limit responses.
	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finance_classifier_rate_limit_hits_total",
		Help: "Number of rate-limit responses from the classification upstream.",
	})
)
