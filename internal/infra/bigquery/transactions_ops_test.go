package bigquery

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

func tx(id, userID, description string) *domain.Transaction {
	return &domain.Transaction{
		ID:              id,
		UserID:          userID,
		TransactionDate: civil.Date{Year: 2025, Month: 3, Day: 15},
		Description:     description,
		DebitAmount:     decimal.RequireFromString("450.50"),
	}
}

func TestDedupeByFingerprint(t *testing.T) {
	t.Run("repeated fingerprint keeps first occurrence", func(t *testing.T) {
		a := tx("t1", "user-1", "UPI/SWIGGY/order")
		b := tx("t2", "user-1", "upi/swiggy/order") // cosmetic variant, same fingerprint
		c := tx("t3", "user-1", "ATM withdrawal")

		out := dedupeByFingerprint([]*domain.Transaction{a, b, c})

		require.Len(t, out, 2)
		assert.Equal(t, "t1", out[0].ID)
		assert.Equal(t, "t3", out[1].ID)
	})

	t.Run("same fingerprint across users kept", func(t *testing.T) {
		a := tx("t1", "user-1", "UPI/SWIGGY/order")
		b := tx("t2", "user-2", "UPI/SWIGGY/order")

		out := dedupeByFingerprint([]*domain.Transaction{a, b})
		assert.Len(t, out, 2)
	})

	t.Run("already unique batch unchanged", func(t *testing.T) {
		a := tx("t1", "user-1", "UPI/SWIGGY/order")
		b := tx("t2", "user-1", "ATM withdrawal")

		out := dedupeByFingerprint([]*domain.Transaction{a, b})
		assert.Equal(t, []*domain.Transaction{a, b}, out)
	})
}
