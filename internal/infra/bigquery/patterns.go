package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// MerchantPatternRow is the finance.merchant_patterns table: per-user
// merchant-to-category mappings learned from previous classifications.
type MerchantPatternRow struct {
	UserID      string    `bigquery:"user_id"`
	MerchantKey string    `bigquery:"merchant_key"`
	CategoryID  string    `bigquery:"category_id"`
	HitCount    int64     `bigquery:"hit_count"`
	UpdatedTS   time.Time `bigquery:"updated_ts"`
}

// LookupPattern returns the learned category for a merchant key, preferring
// the most-reinforced mapping when several exist.
func (r *Repository) LookupPattern(ctx context.Context, userID, merchantKey string) (string, bool, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT category_id
		FROM %s
		WHERE user_id = @user_id
		  AND merchant_key = @merchant_key
		ORDER BY hit_count DESC, updated_ts DESC
		LIMIT 1
	`, r.table(patternsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "merchant_key", Value: merchantKey},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", false, fmt.Errorf("LookupPattern: query read: %w", err)
	}

	var row struct {
		CategoryID string `bigquery:"category_id"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("LookupPattern: iter next: %w", err)
	}
	return row.CategoryID, true, nil
}

// SavePattern records or reinforces a merchant-to-category mapping.
func (r *Repository) SavePattern(ctx context.Context, userID, merchantKey, categoryID string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		MERGE %s p
		USING (SELECT @user_id AS user_id, @merchant_key AS merchant_key, @category_id AS category_id) s
		ON p.user_id = s.user_id AND p.merchant_key = s.merchant_key AND p.category_id = s.category_id
		WHEN MATCHED THEN
		  UPDATE SET hit_count = p.hit_count + 1, updated_ts = @now
		WHEN NOT MATCHED THEN
		  INSERT (user_id, merchant_key, category_id, hit_count, updated_ts)
		  VALUES (s.user_id, s.merchant_key, s.category_id, 1, @now)
	`, r.table(patternsTable)), []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "merchant_key", Value: merchantKey},
		{Name: "category_id", Value: categoryID},
		{Name: "now", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("SavePattern: %w", err)
	}
	return nil
}
