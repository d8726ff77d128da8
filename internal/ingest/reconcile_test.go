package ingest

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func statementTxs() []*domain.Transaction {
	return []*domain.Transaction{
		{
			TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 1},
			Description:     "rent",
			DebitAmount:     decimal.RequireFromString("500"),
		},
		{
			TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 2},
			Description:     "salary",
			CreditAmount:    decimal.RequireFromString("1200"),
		},
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestBalanceValidator_Validate(t *testing.T) {
	v := NewBalanceValidator()

	t.Run("balances reconcile", func(t *testing.T) {
		meta := &domain.StatementMetadata{
			AccountNumber:  "1234",
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
		}
		res := v.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.Empty(t, res.Errors)
		assert.True(t, res.CalculatedClosingBalance.Equal(decimal.RequireFromString("10700")))
		assert.True(t, res.Discrepancy.IsZero())
		assert.True(t, res.AccountNumberValid)
		assert.True(t, hasWarning(res.Warnings, "balance reconciled"))
	})

	t.Run("material mismatch fails hard", func(t *testing.T) {
		meta := &domain.StatementMetadata{
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10650"),
		}
		res := v.Validate(meta, statementTxs())

		assert.False(t, res.IsValid)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "closing balance mismatch")
		assert.True(t, res.Discrepancy.Equal(decimal.RequireFromString("50")))
	})

	t.Run("sub-unit mismatch is a rounding warning", func(t *testing.T) {
		meta := &domain.StatementMetadata{
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700.50"),
		}
		res := v.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.Empty(t, res.Errors)
		assert.True(t, hasWarning(res.Warnings, "likely rounding"))
	})

	t.Run("missing opening balance is a hard error", func(t *testing.T) {
		meta := &domain.StatementMetadata{ClosingBalance: decPtr("10700")}
		res := v.Validate(meta, statementTxs())

		assert.False(t, res.IsValid)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "opening balance is missing")
	})

	t.Run("missing closing balance uses calculated value", func(t *testing.T) {
		meta := &domain.StatementMetadata{OpeningBalance: decPtr("10000")}
		res := v.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.True(t, res.ExpectedClosingBalance.Equal(decimal.RequireFromString("10700")))
		assert.True(t, hasWarning(res.Warnings, "no declared closing balance"))
	})

	t.Run("declared totals compared against computed sums", func(t *testing.T) {
		meta := &domain.StatementMetadata{
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
			TotalCredits:   decPtr("1300"),
			TotalDebits:    decPtr("500"),
		}
		res := v.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.True(t, hasWarning(res.Warnings, "declared total credits"))
		assert.False(t, hasWarning(res.Warnings, "declared total debits"))
	})

	t.Run("missing account number is a warning only", func(t *testing.T) {
		meta := &domain.StatementMetadata{
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
		}
		res := v.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.False(t, res.AccountNumberValid)
		assert.True(t, hasWarning(res.Warnings, "no account number"))
	})

	t.Run("tunable fail limit", func(t *testing.T) {
		loose := &BalanceValidator{
			WarnLimit: decimal.RequireFromString("0.01"),
			FailLimit: decimal.RequireFromString("100"),
		}
		meta := &domain.StatementMetadata{
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10650"),
		}
		res := loose.Validate(meta, statementTxs())

		assert.True(t, res.IsValid)
		assert.True(t, hasWarning(res.Warnings, "likely rounding"))
	})
}

func TestBalanceValidator_Continuity(t *testing.T) {
	v := NewBalanceValidator()

	t.Run("consistent running balances produce no warning", func(t *testing.T) {
		txs := statementTxs()
		txs[0].Balance = decPtr("9500")
		txs[1].Balance = decPtr("10700")
		meta := &domain.StatementMetadata{
			AccountNumber:  "1234",
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
		}
		res := v.Validate(meta, txs)

		assert.True(t, res.IsValid)
		assert.False(t, hasWarning(res.Warnings, "running balances"))
	})

	t.Run("discontinuities warn without failing", func(t *testing.T) {
		txs := statementTxs()
		txs[0].Balance = decPtr("9000") // off by 500
		txs[1].Balance = decPtr("10200")
		meta := &domain.StatementMetadata{
			AccountNumber:  "1234",
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
		}
		res := v.Validate(meta, txs)

		assert.True(t, res.IsValid)
		assert.True(t, hasWarning(res.Warnings, "1 of 2 reported running balances"))
	})

	t.Run("majority disagreement adds review warning", func(t *testing.T) {
		txs := statementTxs()
		txs[0].Balance = decPtr("9000")
		txs[1].Balance = decPtr("99999")
		meta := &domain.StatementMetadata{
			AccountNumber:  "1234",
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("10700"),
		}
		res := v.Validate(meta, txs)

		assert.True(t, res.IsValid)
		assert.True(t, hasWarning(res.Warnings, "more than half"))
	})

	t.Run("re-seeds from reported balance so one bad row does not cascade", func(t *testing.T) {
		txs := []*domain.Transaction{
			{TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 1}, Description: "a", DebitAmount: decimal.RequireFromString("100"), Balance: decPtr("9000")},
			{TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 2}, Description: "b", DebitAmount: decimal.RequireFromString("100"), Balance: decPtr("8900")},
			{TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 3}, Description: "c", DebitAmount: decimal.RequireFromString("100"), Balance: decPtr("8800")},
		}
		meta := &domain.StatementMetadata{
			AccountNumber:  "1234",
			OpeningBalance: decPtr("10000"),
			ClosingBalance: decPtr("9700"),
		}
		res := v.Validate(meta, txs)

		// Only the first row disagrees with its expected value; the rest
		// follow from its reported balance.
		assert.True(t, hasWarning(res.Warnings, "1 of 3 reported running balances"))
	})
}
