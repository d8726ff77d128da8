package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// InsertTransactions persists a batch with fingerprint-unique semantics: a
// single MERGE keyed on (user_id, fingerprint) inserts only rows whose
// fingerprint is not yet present. This is the persistence-time backstop
// behind the in-memory dedupe filter; two concurrent imports of the same
// statement race on the same merge key and only one row lands.
func (r *Repository) InsertTransactions(ctx context.Context, txs []*domain.Transaction) ([]*domain.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	unique := dedupeByFingerprint(txs)
	rows := make([]*TransactionRow, len(unique))
	for i, tx := range unique {
		rows[i] = toTransactionRow(tx)
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		MERGE %s t
		USING UNNEST(@rows) s
		ON t.user_id = s.user_id AND t.fingerprint = s.fingerprint
		WHEN NOT MATCHED THEN
		  INSERT (transaction_id, user_id, transaction_date, description,
		          credit_amount, debit_amount, financial_category, category_id,
		          store, person_name, upi_id, account_number, branch,
		          bank_reference, balance_after, is_deleted, source_document_id,
		          fingerprint, raw)
		  VALUES (s.transaction_id, s.user_id, s.transaction_date, s.description,
		          s.credit_amount, s.debit_amount, s.financial_category, s.category_id,
		          s.store, s.person_name, s.upi_id, s.account_number, s.branch,
		          s.bank_reference, s.balance_after, s.is_deleted, s.source_document_id,
		          s.fingerprint, s.raw)
	`, r.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "rows", Value: rows},
	})
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: merging rows: %w", err)
	}

	return r.confirmInserted(ctx, unique)
}

// dedupeByFingerprint drops repeated fingerprints within one batch, keeping
// the first occurrence. The import pipeline already filters these, but a
// repeated source row would make the merge insert both copies.
func dedupeByFingerprint(txs []*domain.Transaction) []*domain.Transaction {
	seen := make(map[string]bool, len(txs))
	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		key := tx.UserID + "|" + tx.Fingerprint()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tx)
	}
	return out
}

// confirmInserted reports which of the merged rows actually landed. A row
// that lost the merge to an already-present fingerprint keeps its freshly
// assigned id out of the table, so membership by id is the ground truth.
func (r *Repository) confirmInserted(ctx context.Context, txs []*domain.Transaction) ([]*domain.Transaction, error) {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT transaction_id
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_id IN UNNEST(@ids)
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: txs[0].UserID},
		{Name: "ids", Value: ids},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: confirming rows: %w", err)
	}

	landed := make(map[string]bool, len(txs))
	for {
		var row struct {
			TransactionID string `bigquery:"transaction_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("InsertTransactions: iter next: %w", err)
		}
		landed[row.TransactionID] = true
	}

	inserted := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if landed[tx.ID] {
			inserted = append(inserted, tx)
		}
	}
	return inserted, nil
}

// QueryTransactionsByUserAndDateRange returns the user's non-deleted
// transactions dated inside [start, end], in statement order.
func (r *Repository) QueryTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		  AND is_deleted = FALSE
		ORDER BY transaction_date, transaction_id
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start.String()},
		{Name: "end_date", Value: end.String()},
	}

	return r.readTransactions(ctx, q)
}

// GetTransactionsByIDs loads a user's transactions by id. Ids that do not
// exist are skipped rather than failing the load.
func (r *Repository) GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]*domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_id IN UNNEST(@ids)
		ORDER BY transaction_date, transaction_id
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "ids", Value: ids},
	}

	return r.readTransactions(ctx, q)
}

func (r *Repository) readTransactions(ctx context.Context, q *bigquery.Query) ([]*domain.Transaction, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		txs = append(txs, fromTransactionRow(&row))
	}
	return txs, nil
}
