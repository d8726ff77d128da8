package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// StatementRow is the finance.statements audit table: one row per import
// attempt, immutable once written.
type StatementRow struct {
	ImportID string `bigquery:"import_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	AccountNumber string `bigquery:"account_number"`

	OpeningBalance *big.Rat `bigquery:"opening_balance"` // NULLABLE
	ClosingBalance *big.Rat `bigquery:"closing_balance"` // NULLABLE
	TotalCredits   *big.Rat `bigquery:"total_credits"`   // NULLABLE
	TotalDebits    *big.Rat `bigquery:"total_debits"`    // NULLABLE

	StatementStart bigquery.NullDate `bigquery:"statement_start_date"`
	StatementEnd   bigquery.NullDate `bigquery:"statement_end_date"`

	TransactionCount int       `bigquery:"transaction_count"`
	ImportedTS       time.Time `bigquery:"imported_ts"`
}

// InsertStatement records the statement metadata of an import attempt.
func (r *Repository) InsertStatement(ctx context.Context, userID, importID string, meta *domain.StatementMetadata) error {
	row := &StatementRow{
		ImportID:         importID,
		UserID:           userID,
		AccountNumber:    meta.AccountNumber,
		TransactionCount: meta.TransactionCount,
		ImportedTS:       time.Now(),
	}
	if meta.OpeningBalance != nil {
		row.OpeningBalance = meta.OpeningBalance.Rat()
	}
	if meta.ClosingBalance != nil {
		row.ClosingBalance = meta.ClosingBalance.Rat()
	}
	if meta.TotalCredits != nil {
		row.TotalCredits = meta.TotalCredits.Rat()
	}
	if meta.TotalDebits != nil {
		row.TotalDebits = meta.TotalDebits.Rat()
	}
	if meta.StatementStartDate != nil {
		row.StatementStart = bigquery.NullDate{Date: *meta.StatementStartDate, Valid: true}
	}
	if meta.StatementEndDate != nil {
		row.StatementEnd = bigquery.NullDate{Date: *meta.StatementEndDate, Valid: true}
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}
