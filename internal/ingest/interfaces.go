package ingest

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// TransactionStore is the persistence surface the import pipeline needs.
// The concrete implementation lives in internal/infra/bigquery; tests supply
// in-memory fakes.
type TransactionStore interface {
	// QueryTransactionsByUserAndDateRange returns the non-deleted
	// transactions for a user whose date falls inside [start, end]. The
	// import pipeline uses it as the deduplication snapshot.
	QueryTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error)

	// InsertTransactions persists a batch with fingerprint-unique semantics:
	// rows whose fingerprint already exists for the user are skipped, not
	// failed. It returns the rows that were actually inserted.
	InsertTransactions(ctx context.Context, txs []*domain.Transaction) ([]*domain.Transaction, error)

	// InsertStatement records the statement metadata of an import attempt
	// for audit.
	InsertStatement(ctx context.Context, userID, importID string, meta *domain.StatementMetadata) error
}

// InlineCategorizer classifies a small batch synchronously and applies the
// results before returning. Implemented by categorize.Orchestrator.
type InlineCategorizer interface {
	CategorizeInline(ctx context.Context, userID string, txs []*domain.Transaction, useAI bool) (int, error)
}

// BackgroundLauncher starts a detached server-side categorization job for a
// large batch and returns immediately.
type BackgroundLauncher interface {
	LaunchBackground(ctx context.Context, userID string, transactionIDs []string, useAI bool) (jobID string, err error)
}

// Archiver writes the raw import payload somewhere durable for audit and
// replay. Archiving is best-effort; failures surface as warnings.
type Archiver interface {
	ArchiveImport(ctx context.Context, importID string, payload interface{}) (string, error)
}
