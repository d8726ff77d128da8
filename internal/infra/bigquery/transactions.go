package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// TransactionRow is the finance.transactions table schema. Amounts are
// NUMERIC; the fingerprint column backs the duplicate-ignoring insert.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`
	CreditAmount    *big.Rat   `bigquery:"credit_amount"`
	DebitAmount     *big.Rat   `bigquery:"debit_amount"`

	FinancialCategory string              `bigquery:"financial_category"`
	CategoryID        bigquery.NullString `bigquery:"category_id"` // NULLABLE until categorized

	Store         string `bigquery:"store"`
	PersonName    string `bigquery:"person_name"`
	UPIID         string `bigquery:"upi_id"`
	AccountNumber string `bigquery:"account_number"`
	Branch        string `bigquery:"branch"`
	BankReference string `bigquery:"bank_reference"`

	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE

	IsDeleted        bool   `bigquery:"is_deleted"`
	SourceDocumentID string `bigquery:"source_document_id"`
	Fingerprint      string `bigquery:"fingerprint"`
	Raw              string `bigquery:"raw"`
}

func toTransactionRow(tx *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:     tx.ID,
		UserID:            tx.UserID,
		TransactionDate:   tx.TransactionDate,
		Description:       tx.Description,
		CreditAmount:      tx.CreditAmount.Rat(),
		DebitAmount:       tx.DebitAmount.Rat(),
		FinancialCategory: string(tx.FinancialCategory),
		Store:             tx.Store,
		PersonName:        tx.PersonName,
		UPIID:             tx.UPIID,
		AccountNumber:     tx.AccountNumber,
		Branch:            tx.Branch,
		BankReference:     tx.BankReference,
		IsDeleted:         tx.IsDeleted,
		SourceDocumentID:  tx.SourceDocumentID,
		Fingerprint:       tx.Fingerprint(),
		Raw:               tx.Raw,
	}
	if tx.CategoryID != "" {
		row.CategoryID = bigquery.NullString{StringVal: tx.CategoryID, Valid: true}
	}
	if tx.Balance != nil {
		row.BalanceAfter = tx.Balance.Rat()
	}
	return row
}

func fromTransactionRow(row *TransactionRow) *domain.Transaction {
	tx := &domain.Transaction{
		ID:                row.TransactionID,
		UserID:            row.UserID,
		TransactionDate:   row.TransactionDate,
		Description:       row.Description,
		CreditAmount:      ratToDecimal(row.CreditAmount),
		DebitAmount:       ratToDecimal(row.DebitAmount),
		FinancialCategory: domain.FinancialCategory(row.FinancialCategory),
		Store:             row.Store,
		PersonName:        row.PersonName,
		UPIID:             row.UPIID,
		AccountNumber:     row.AccountNumber,
		Branch:            row.Branch,
		BankReference:     row.BankReference,
		IsDeleted:         row.IsDeleted,
		SourceDocumentID:  row.SourceDocumentID,
		Raw:               row.Raw,
	}
	if row.CategoryID.Valid {
		tx.CategoryID = row.CategoryID.StringVal
	}
	if row.BalanceAfter != nil {
		bal := ratToDecimal(row.BalanceAfter)
		tx.Balance = &bal
	}
	return tx
}

// ratToDecimal converts a BigQuery NUMERIC value back into a decimal with
// currency precision.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}
