package ingest

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	t.Run("well-formed debit row", func(t *testing.T) {
		res := n.Normalize(RawRow{
			"date_iso":      "2025-03-15",
			"description":   "UPI/SWIGGY/order",
			"debit":         450.50,
			"store":         "Swiggy",
			"upiId":         "swiggy@ybl",
			"accountNumber": "1234",
			"balance":       "9549.50",
		}, "user-1", nil)

		require.False(t, res.Rejected, res.Reason)
		tx := res.Transaction
		assert.Equal(t, "user-1", tx.UserID)
		assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 15}, tx.TransactionDate)
		assert.True(t, tx.DebitAmount.Equal(decimal.RequireFromString("450.5")))
		assert.True(t, tx.CreditAmount.IsZero())
		assert.Equal(t, domain.CategoryExpense, tx.FinancialCategory)
		assert.Equal(t, "Swiggy", tx.Store)
		require.NotNil(t, tx.Balance)
		assert.True(t, tx.Balance.Equal(decimal.RequireFromString("9549.50")))
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name   string
			row    RawRow
			reason string
		}{
			{
				name:   "both amounts zero",
				row:    RawRow{"date_iso": "2025-03-15", "description": "x", "credit": 0, "debit": 0},
				reason: "both credit and debit are zero",
			},
			{
				name:   "amounts missing entirely",
				row:    RawRow{"date_iso": "2025-03-15", "description": "x"},
				reason: "both credit and debit are zero",
			},
			{
				name:   "negative amount clamped to zero",
				row:    RawRow{"date_iso": "2025-03-15", "description": "x", "debit": -12.5},
				reason: "both credit and debit are zero",
			},
			{
				name:   "empty description",
				row:    RawRow{"date_iso": "2025-03-15", "description": "   ", "debit": 10},
				reason: "empty description",
			},
			{
				name:   "no parseable date",
				row:    RawRow{"date": "not a date", "description": "x", "debit": 10},
				reason: "no valid date",
			},
			{
				name:   "date before sanity window",
				row:    RawRow{"date_iso": "1999-01-01", "description": "x", "debit": 10},
				reason: "outside sanity window",
			},
			{
				name:   "date after sanity window",
				row:    RawRow{"date_iso": "2099-01-01", "description": "x", "debit": 10},
				reason: "outside sanity window",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := n.Normalize(tt.row, "user-1", nil)
				require.True(t, res.Rejected)
				assert.Contains(t, res.Reason, tt.reason)
			})
		}
	})

	t.Run("date priority", func(t *testing.T) {
		// Explicit ISO field beats the free-text field.
		res := n.Normalize(RawRow{
			"date_iso":    "2025-03-15",
			"date":        "2025-04-01",
			"description": "x",
			"debit":       10,
		}, "user-1", nil)
		require.False(t, res.Rejected)
		assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 15}, res.Transaction.TransactionDate)

		// Embedded ISO date inside free text.
		res = n.Normalize(RawRow{
			"date":        "value date 2025-03-20 cleared",
			"description": "x",
			"debit":       10,
		}, "user-1", nil)
		require.False(t, res.Rejected)
		assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 20}, res.Transaction.TransactionDate)
	})

	t.Run("free-text bank layouts", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
			want civil.Date
		}{
			{"slash day first", "15/03/2025", civil.Date{Year: 2025, Month: 3, Day: 15}},
			{"dash day first", "15-03-2025", civil.Date{Year: 2025, Month: 3, Day: 15}},
			{"single digit day and month", "5/3/2025", civil.Date{Year: 2025, Month: 3, Day: 5}},
			{"month name", "15 Mar 2025", civil.Date{Year: 2025, Month: 3, Day: 15}},
			{"dashed month name", "15-Mar-2025", civil.Date{Year: 2025, Month: 3, Day: 15}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := n.Normalize(RawRow{"date": tt.raw, "description": "x", "debit": 10}, "user-1", nil)
				require.False(t, res.Rejected, res.Reason)
				assert.Equal(t, tt.want, res.Transaction.TransactionDate)
			})
		}

		// An impossible month falls through every layout.
		res := n.Normalize(RawRow{"date": "13/13/2025", "description": "x", "debit": 10}, "user-1", nil)
		require.True(t, res.Rejected)
		assert.Contains(t, res.Reason, "no valid date")
	})

	t.Run("amount coercion", func(t *testing.T) {
		res := n.Normalize(RawRow{
			"date_iso":    "2025-03-15",
			"description": "x",
			"credit":      "1,200.00",
		}, "user-1", nil)
		require.False(t, res.Rejected)
		assert.True(t, res.Transaction.CreditAmount.Equal(decimal.RequireFromString("1200")))
		assert.Equal(t, domain.CategoryIncome, res.Transaction.FinancialCategory)
	})

	t.Run("account number falls back to metadata", func(t *testing.T) {
		meta := &domain.StatementMetadata{AccountNumber: "9876"}
		res := n.Normalize(RawRow{
			"date_iso":    "2025-03-15",
			"description": "x",
			"debit":       10,
		}, "user-1", meta)
		require.False(t, res.Rejected)
		assert.Equal(t, "9876", res.Transaction.AccountNumber)
	})
}

func TestNormalizer_NormalizeBatch(t *testing.T) {
	n := NewNormalizer()

	rows := []RawRow{
		{"date_iso": "2025-03-15", "description": "good one", "debit": 10},
		{"date_iso": "2025-03-16", "description": "zero row", "credit": 0, "debit": 0},
		{"date_iso": "2025-03-17", "description": "good two", "credit": 25},
	}

	candidates, rejections := n.NormalizeBatch(rows, "user-1", nil)

	require.Len(t, candidates, 2)
	require.Len(t, rejections, 1)
	assert.Contains(t, rejections[0], "row 1 rejected")
	assert.Equal(t, "good one", candidates[0].Description)
	assert.Equal(t, "good two", candidates[1].Description)
}
