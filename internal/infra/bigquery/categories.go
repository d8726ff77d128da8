package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// CategoryRow is the finance.categories taxonomy table schema.
type CategoryRow struct {
	CategoryID    string `bigquery:"category_id"`
	Name          string `bigquery:"category_name"`
	FinancialType string `bigquery:"financial_type"`
	IsActive      bool   `bigquery:"is_active"`
}

// ListActiveCategories returns the active taxonomy ordered by name.
func (r *Repository) ListActiveCategories(ctx context.Context) ([]domain.Category, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
		  category_id,
		  category_name,
		  financial_type,
		  is_active
		FROM %s
		WHERE is_active = TRUE
		ORDER BY category_name
	`, r.table(categoriesTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCategories: query read: %w", err)
	}

	var categories []domain.Category
	for {
		var row CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveCategories: iter next: %w", err)
		}
		categories = append(categories, domain.Category{
			ID:            row.CategoryID,
			Name:          row.Name,
			FinancialType: domain.FinancialCategory(row.FinancialType),
			IsActive:      row.IsActive,
		})
	}
	return categories, nil
}
