package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// FinancialCategory is the coarse direction-level classification of a
// transaction. The fine-grained assignment lives in CategoryID.
type FinancialCategory string

const (
	CategoryIncome     FinancialCategory = "INCOME"
	CategoryExpense    FinancialCategory = "EXPENSE"
	CategoryTransfer   FinancialCategory = "TRANSFER"
	CategoryInvestment FinancialCategory = "INVESTMENT"
	CategoryOther      FinancialCategory = "OTHER"
)

// Transaction is the durable, normalized unit produced by the ingestion
// pipeline. Amounts are always non-negative; a well-formed record has exactly
// one of CreditAmount/DebitAmount non-zero, though this is informational and
// not physically enforced by the store.
type Transaction struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	TransactionDate civil.Date      `json:"transactionDate"`
	Description     string          `json:"description"`
	CreditAmount    decimal.Decimal `json:"creditAmount"`
	DebitAmount     decimal.Decimal `json:"debitAmount"`

	FinancialCategory FinancialCategory `json:"financialCategory"`
	CategoryID        string            `json:"categoryId,omitempty"`

	Store         string `json:"store,omitempty"`
	PersonName    string `json:"personName,omitempty"`
	UPIID         string `json:"upiId,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Branch        string `json:"branch,omitempty"`
	BankReference string `json:"transactionId,omitempty"`

	// Balance is the statement-reported running balance after this
	// transaction, if the producer extracted one.
	Balance *decimal.Decimal `json:"balance,omitempty"`

	IsDeleted        bool   `json:"isDeleted"`
	SourceDocumentID string `json:"sourceDocumentId,omitempty"`

	// Raw preserves the original statement line text for audit.
	Raw string `json:"raw,omitempty"`
}

// Amount returns the single non-zero amount of the transaction. For a record
// that somehow carries both, the debit wins (money out is the conservative
// reading).
func (t *Transaction) Amount() decimal.Decimal {
	if t.DebitAmount.IsPositive() {
		return t.DebitAmount
	}
	return t.CreditAmount
}

// Net returns the signed effect on the account balance: credits positive,
// debits negative.
func (t *Transaction) Net() decimal.Decimal {
	return t.CreditAmount.Sub(t.DebitAmount)
}

// IsCategorized reports whether a fine-grained category has been assigned.
func (t *Transaction) IsCategorized() bool {
	return t.CategoryID != ""
}

// Fingerprint returns the composite duplicate-detection key for this
// transaction: calendar date, amount rounded to the smallest currency unit,
// normalized description, and account number when present. Two imports of the
// same statement line always produce the same fingerprint.
func (t *Transaction) Fingerprint() string {
	amountPaise := t.Amount().Mul(decimal.NewFromInt(100)).Round(0).String()

	var b strings.Builder
	b.WriteString(t.TransactionDate.String())
	b.WriteByte('|')
	b.WriteString(amountPaise)
	b.WriteByte('|')
	b.WriteString(NormalizeDescription(t.Description))
	if t.AccountNumber != "" {
		b.WriteByte('|')
		b.WriteString(t.AccountNumber)
	}
	return b.String()
}

// NormalizeDescription lowercases a description and collapses all interior
// whitespace runs to a single space, so cosmetic extraction differences do
// not defeat duplicate detection.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DirectionCategory derives the coarse financial category from the amount
// direction. Categorization may later correct this (e.g. to TRANSFER).
func DirectionCategory(credit, debit decimal.Decimal) FinancialCategory {
	if credit.IsPositive() {
		return CategoryIncome
	}
	if debit.IsPositive() {
		return CategoryExpense
	}
	return CategoryOther
}
