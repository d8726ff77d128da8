package domain

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransaction_Fingerprint(t *testing.T) {
	base := Transaction{
		TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 15},
		Description:     "UPI/SWIGGY/payment",
		DebitAmount:     dec("450.50"),
		AccountNumber:   "1234",
	}

	t.Run("stable across imports", func(t *testing.T) {
		other := base
		assert.Equal(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("ignores cosmetic description differences", func(t *testing.T) {
		other := base
		other.Description = "  UPI/SWIGGY/payment  "
		assert.Equal(t, base.Fingerprint(), other.Fingerprint())

		other.Description = "upi/swiggy/PAYMENT"
		assert.Equal(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("amount in smallest currency unit", func(t *testing.T) {
		assert.Contains(t, base.Fingerprint(), "|45050|")
	})

	t.Run("differs on date", func(t *testing.T) {
		other := base
		other.TransactionDate = civil.Date{Year: 2025, Month: 3, Day: 16}
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("differs on amount", func(t *testing.T) {
		other := base
		other.DebitAmount = dec("450.51")
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("account number omitted when empty", func(t *testing.T) {
		other := base
		other.AccountNumber = ""
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
		assert.NotContains(t, other.Fingerprint(), "1234")
	})
}

func TestTransaction_Amount(t *testing.T) {
	t.Run("credit only", func(t *testing.T) {
		tx := Transaction{CreditAmount: dec("100")}
		assert.True(t, tx.Amount().Equal(dec("100")))
	})

	t.Run("debit wins when both set", func(t *testing.T) {
		tx := Transaction{CreditAmount: dec("100"), DebitAmount: dec("40")}
		assert.True(t, tx.Amount().Equal(dec("40")))
	})
}

func TestTransaction_Net(t *testing.T) {
	tx := Transaction{CreditAmount: dec("100"), DebitAmount: dec("40")}
	assert.True(t, tx.Net().Equal(dec("60")))
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UPI  Payment   To Store", "upi payment to store"},
		{"  leading and trailing  ", "leading and trailing"},
		{"already normal", "already normal"},
		{"", ""},
		{"TABS\tand\nnewlines", "tabs and newlines"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDescription(tt.in))
	}
}

func TestDirectionCategory(t *testing.T) {
	assert.Equal(t, CategoryIncome, DirectionCategory(dec("10"), decimal.Zero))
	assert.Equal(t, CategoryExpense, DirectionCategory(decimal.Zero, dec("10")))
	assert.Equal(t, CategoryOther, DirectionCategory(decimal.Zero, decimal.Zero))
}
