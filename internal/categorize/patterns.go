package categorize

import (
	"context"
	"strings"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// PatternStore is the second categorization stage: merchant-to-category
// mappings learned from previous classifications, persisted per user so the
// AI fallback is only paid for genuinely new merchants.
type PatternStore interface {
	// LookupPattern returns the learned category for a merchant key, if any.
	LookupPattern(ctx context.Context, userID, merchantKey string) (categoryID string, ok bool, err error)

	// SavePattern records (or reinforces) a merchant-to-category mapping.
	SavePattern(ctx context.Context, userID, merchantKey, categoryID string) error
}

// MerchantKey derives the pattern-store lookup key for a transaction: the
// store name when the producer extracted one, otherwise the leading tokens of
// the normalized description. Amounts and dates deliberately do not
// participate, so the same merchant matches across visits.
func MerchantKey(tx *domain.Transaction) string {
	if tx.Store != "" {
		return domain.NormalizeDescription(tx.Store)
	}
	fields := strings.Fields(domain.NormalizeDescription(tx.Description))
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}
