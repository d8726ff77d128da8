package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// RawRow is one producer-supplied candidate transaction: a schema-free bag of
// fields as emitted by the upstream statement extraction step. Field names
// and types are not guaranteed; normalization owns all coercion.
type RawRow map[string]interface{}

var embeddedDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Free-text layouts seen in bank statement exports, tried after the ISO
// form. Numeric layouts are read day-first, matching the source statements.
var freeTextDateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2 Jan 2006",
	"2-Jan-2006",
}

// Normalizer converts raw rows into canonical transactions. It is a pure
// transform: the same row always yields the same result, and malformed rows
// produce a rejection rather than an error escaping the batch fold.
type Normalizer struct {
	// MinDate/MaxDate bound the accepted transaction dates. Dates outside the
	// window are treated as extraction garbage and rejected.
	MinDate civil.Date
	MaxDate civil.Date
}

// NewNormalizer returns a normalizer with the default sanity window:
// 2020-01-01 through the end of the next calendar year.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MinDate: civil.Date{Year: 2020, Month: time.January, Day: 1},
		MaxDate: civil.Date{Year: time.Now().Year() + 1, Month: time.December, Day: 31},
	}
}

// Result is the tagged outcome of normalizing one row: either a canonical
// transaction candidate or a rejection with its reason.
type Result struct {
	Transaction *domain.Transaction
	Rejected    bool
	Reason      string
}

func rejected(reason string) Result {
	return Result{Rejected: true, Reason: reason}
}

// Normalize converts one raw row into a canonical transaction candidate for
// the given user and statement. The statement metadata supplies fallback
// values (account number) the row itself may lack.
func (n *Normalizer) Normalize(row RawRow, userID string, meta *domain.StatementMetadata) Result {
	credit := coerceAmount(row, "credit")
	debit := coerceAmount(row, "debit")
	if credit.IsZero() && debit.IsZero() {
		return rejected("both credit and debit are zero")
	}

	description := strings.TrimSpace(stringField(row, "description"))
	if description == "" {
		return rejected("empty description")
	}

	date, ok := n.extractDate(row)
	if !ok {
		return rejected(fmt.Sprintf("no valid date in %q / %q", stringField(row, "date_iso"), stringField(row, "date")))
	}
	if date.Before(n.MinDate) || n.MaxDate.Before(date) {
		return rejected(fmt.Sprintf("date %s outside sanity window %s..%s", date, n.MinDate, n.MaxDate))
	}

	accountNumber := stringField(row, "accountNumber")
	if accountNumber == "" && meta != nil {
		accountNumber = meta.AccountNumber
	}

	tx := &domain.Transaction{
		UserID:            userID,
		TransactionDate:   date,
		Description:       description,
		CreditAmount:      credit,
		DebitAmount:       debit,
		FinancialCategory: domain.DirectionCategory(credit, debit),
		Store:             stringField(row, "store"),
		PersonName:        stringField(row, "personName"),
		UPIID:             stringField(row, "upiId"),
		AccountNumber:     accountNumber,
		Branch:            stringField(row, "branch"),
		BankReference:     stringField(row, "transactionId"),
		Raw:               stringField(row, "raw"),
	}

	if bal, ok := optionalAmount(row, "balance"); ok {
		tx.Balance = &bal
	}
	return Result{Transaction: tx}
}

// NormalizeBatch folds Normalize over a whole batch, partitioning it into
// candidates and rejections so one malformed row cannot abort the import.
func (n *Normalizer) NormalizeBatch(rows []RawRow, userID string, meta *domain.StatementMetadata) ([]*domain.Transaction, []string) {
	candidates := make([]*domain.Transaction, 0, len(rows))
	var rejections []string
	for i, row := range rows {
		res := n.Normalize(row, userID, meta)
		if res.Rejected {
			rejections = append(rejections, fmt.Sprintf("row %d rejected: %s", i, res.Reason))
			continue
		}
		candidates = append(candidates, res.Transaction)
	}
	return candidates, rejections
}

// extractDate resolves the transaction date with the producer's field
// priority: an explicit ISO field first, then the free-text date field
// parsed as ISO or a known bank layout, then a YYYY-MM-DD substring embedded
// anywhere in it.
func (n *Normalizer) extractDate(row RawRow) (civil.Date, bool) {
	if iso := strings.TrimSpace(stringField(row, "date_iso")); iso != "" {
		if d, err := civil.ParseDate(iso); err == nil {
			return d, true
		}
	}

	raw := strings.TrimSpace(stringField(row, "date"))
	if raw == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(raw); err == nil {
		return d, true
	}
	for _, layout := range freeTextDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), true
		}
	}
	if m := embeddedDateRe.FindString(raw); m != "" {
		if d, err := civil.ParseDate(m); err == nil {
			return d, true
		}
	}
	return civil.Date{}, false
}

// stringField reads a field as a string, tolerating absence and non-string
// values (numbers are formatted, everything else is dropped).
func stringField(row RawRow, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return decimal.NewFromFloat(val).String()
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return ""
	}
}

// coerceAmount reads a monetary field, treating missing, null, or
// non-numeric values as zero. Negative extractions are clamped to zero since
// credit/debit are direction-separated columns upstream.
func coerceAmount(row RawRow, key string) decimal.Decimal {
	d, ok := optionalAmount(row, key)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func optionalAmount(row RawRow, key string) (decimal.Decimal, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return decimal.Decimal{}, false
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case decimal.Decimal:
		return val, true
	default:
		return decimal.Decimal{}, false
	}
}
