package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// StatementMetadata describes one import batch as declared by the source
// document. It is created once per import attempt and immutable after the
// balance validator consumes it; rows are retained for audit alongside the
// transactions they produced.
type StatementMetadata struct {
	AccountNumber string `json:"accountNumber,omitempty"`

	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`

	// TotalCredits/TotalDebits are the totals the source document itself
	// declares, not sums we compute. Either may be absent.
	TotalCredits *decimal.Decimal `json:"totalCredits,omitempty"`
	TotalDebits  *decimal.Decimal `json:"totalDebits,omitempty"`

	StatementStartDate *civil.Date `json:"statementStartDate,omitempty"`
	StatementEndDate   *civil.Date `json:"statementEndDate,omitempty"`

	TransactionCount int `json:"transactionCount"`
}

// ReconciliationResult is the outcome of checking a statement's declared
// balances against the sum of its transactions. It is attached to the import
// response and not persisted as a first-class entity.
type ReconciliationResult struct {
	CalculatedClosingBalance decimal.Decimal `json:"calculatedClosingBalance"`
	ExpectedClosingBalance   decimal.Decimal `json:"expectedClosingBalance"`
	Discrepancy              decimal.Decimal `json:"discrepancy"`
	IsValid                  bool            `json:"isValid"`
	Errors                   []string        `json:"errors"`
	Warnings                 []string        `json:"warnings"`
	AccountNumberValid       bool            `json:"accountNumberValid"`
}

// Category is one entry of the active category taxonomy.
type Category struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	FinancialType FinancialCategory `json:"financialType"`
	IsActive      bool              `json:"isActive"`
}
