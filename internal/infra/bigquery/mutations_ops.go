package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// SetTransactionCategory assigns a category and corrects the coarse
// financial type on one transaction.
func (r *Repository) SetTransactionCategory(ctx context.Context, userID, transactionID, categoryID string, financialType domain.FinancialCategory) error {
	if err := r.requireTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("SetTransactionCategory: %w", err)
	}
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET category_id = @category_id,
		    financial_category = @financial_category
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, r.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "category_id", Value: categoryID},
		{Name: "financial_category", Value: string(financialType)},
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	})
	if err != nil {
		return fmt.Errorf("SetTransactionCategory: %w", err)
	}
	return nil
}

// SetCategory implements the bulk-mutation categorize action. The coarse
// financial type is left as-is; only the fine-grained assignment changes.
func (r *Repository) SetCategory(ctx context.Context, userID, transactionID, categoryID string) error {
	if err := r.requireTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("SetCategory: %w", err)
	}
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET category_id = @category_id
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, r.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "category_id", Value: categoryID},
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	})
	if err != nil {
		return fmt.Errorf("SetCategory: %w", err)
	}
	return nil
}

// SoftDelete marks a transaction deleted. Deleting an already-deleted
// transaction is a no-op success.
func (r *Repository) SoftDelete(ctx context.Context, userID, transactionID string) error {
	return r.setDeleted(ctx, userID, transactionID, true)
}

// Restore clears the deleted flag. Restoring an active transaction is a
// no-op success.
func (r *Repository) Restore(ctx context.Context, userID, transactionID string) error {
	return r.setDeleted(ctx, userID, transactionID, false)
}

func (r *Repository) setDeleted(ctx context.Context, userID, transactionID string, deleted bool) error {
	if err := r.requireTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("setDeleted: %w", err)
	}
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = @is_deleted
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, r.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "is_deleted", Value: deleted},
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	})
	if err != nil {
		return fmt.Errorf("setDeleted: %w", err)
	}
	return nil
}

// requireTransaction fails with a not-found error when the id does not exist
// for the user, so bulk mutation failures carry a usable reason.
func (r *Repository) requireTransaction(ctx context.Context, userID, transactionID string) error {
	q := r.client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("query read: %w", err)
	}
	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("iter next: %w", err)
	}
	if row.N == 0 {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}
	return nil
}
