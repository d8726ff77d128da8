package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

func TestRuleTable_Match(t *testing.T) {
	table := NewRuleTable([]Rule{
		{CategoryID: "food-delivery", Keywords: []string{"swiggy", "zomato"}},
		{CategoryID: "salary", FinancialType: "INCOME", Keywords: []string{"salary", "payroll"}},
		{CategoryID: "groceries", Keywords: []string{" BigBasket "}}, // normalized on load
	})

	tests := []struct {
		name     string
		tx       domain.Transaction
		wantID   string
		wantType domain.FinancialCategory
		wantOK   bool
	}{
		{
			name:   "keyword in description",
			tx:     domain.Transaction{Description: "UPI/SWIGGY/order 4412"},
			wantID: "food-delivery",
			wantOK: true,
		},
		{
			name:   "keyword in store name",
			tx:     domain.Transaction{Store: "Zomato", Description: "UPI payment"},
			wantID: "food-delivery",
			wantOK: true,
		},
		{
			name:     "financial type override carried",
			tx:       domain.Transaction{Description: "NEFT SALARY MARCH"},
			wantID:   "salary",
			wantType: domain.CategoryIncome,
			wantOK:   true,
		},
		{
			name:   "keywords trimmed and lowercased on load",
			tx:     domain.Transaction{Description: "bigbasket weekly"},
			wantID: "groceries",
			wantOK: true,
		},
		{
			name:   "first rule wins",
			tx:     domain.Transaction{Description: "swiggy salary refund"},
			wantID: "food-delivery",
			wantOK: true,
		},
		{
			name:   "no match",
			tx:     domain.Transaction{Description: "ATM withdrawal"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := table.Match(&tt.tx)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, a.CategoryID)
				assert.Equal(t, tt.wantType, a.FinancialType)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := `rules:
  - category_id: food-delivery
    keywords: [swiggy, zomato]
  - category_id: salary
    financial_type: INCOME
    keywords:
      - salary
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := LoadRules(path)
		require.NoError(t, err)
		assert.Equal(t, 2, table.Len())

		a, ok := table.Match(&domain.Transaction{Description: "salary credit"})
		require.True(t, ok)
		assert.Equal(t, "salary", a.CategoryID)
		assert.Equal(t, domain.CategoryIncome, a.FinancialType)
	})

	t.Run("rule without category id fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  - keywords: [swiggy]\n"), 0o644))

		_, err := LoadRules(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no category_id")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestMerchantKey(t *testing.T) {
	t.Run("prefers store name", func(t *testing.T) {
		tx := domain.Transaction{Store: "Big Basket", Description: "UPI/payment/12345"}
		assert.Equal(t, "big basket", MerchantKey(&tx))
	})

	t.Run("falls back to leading description tokens", func(t *testing.T) {
		tx := domain.Transaction{Description: "UPI Payment To Some Long Merchant Name"}
		assert.Equal(t, "upi payment to", MerchantKey(&tx))
	})

	t.Run("amount and date independent", func(t *testing.T) {
		a := domain.Transaction{Description: "coffee shop"}
		b := domain.Transaction{Description: "Coffee  Shop"}
		assert.Equal(t, MerchantKey(&a), MerchantKey(&b))
	})
}
