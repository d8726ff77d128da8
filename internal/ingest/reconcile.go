package ingest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// BalanceValidator checks the arithmetic consistency of a statement against
// its normalized, deduplicated transactions.
//
// Statement extraction is inherently lossy, so validation is two-tier: only
// arithmetic impossibility (no opening balance) or a material closing-balance
// mismatch produces a hard error; everything else is surfaced as a warning
// for human review without blocking the import.
type BalanceValidator struct {
	// WarnLimit is the discrepancy below which a closing-balance difference
	// counts as a match.
	WarnLimit decimal.Decimal
	// FailLimit is the discrepancy above which validation fails hard.
	// Differences between the two limits are reported as likely rounding.
	FailLimit decimal.Decimal
}

// NewBalanceValidator returns a validator with the default tolerances:
// 0.01 currency units for a match, 1.00 for the hard-failure cutoff.
func NewBalanceValidator() *BalanceValidator {
	return &BalanceValidator{
		WarnLimit: decimal.New(1, -2),
		FailLimit: decimal.New(1, 0),
	}
}

// Validate reconciles the statement metadata against the transaction set.
// The caller is expected to pass a clean (normalized, deduplicated) set in
// statement order.
func (v *BalanceValidator) Validate(meta *domain.StatementMetadata, txs []*domain.Transaction) *domain.ReconciliationResult {
	res := &domain.ReconciliationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}

	if meta == nil || meta.OpeningBalance == nil {
		res.IsValid = false
		res.Errors = append(res.Errors, "opening balance is missing: reconciliation is impossible without it")
		return res
	}
	opening := *meta.OpeningBalance

	totalCredits := decimal.Zero
	totalDebits := decimal.Zero
	for _, tx := range txs {
		totalCredits = totalCredits.Add(tx.CreditAmount)
		totalDebits = totalDebits.Add(tx.DebitAmount)
	}

	res.CalculatedClosingBalance = opening.Add(totalCredits).Sub(totalDebits)

	if meta.TotalCredits != nil {
		if diff := meta.TotalCredits.Sub(totalCredits).Abs(); diff.GreaterThan(v.WarnLimit) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"declared total credits %s differ from computed %s by %s",
				meta.TotalCredits, totalCredits, diff))
		}
	}
	if meta.TotalDebits != nil {
		if diff := meta.TotalDebits.Sub(totalDebits).Abs(); diff.GreaterThan(v.WarnLimit) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"declared total debits %s differ from computed %s by %s",
				meta.TotalDebits, totalDebits, diff))
		}
	}

	if meta.ClosingBalance != nil {
		res.ExpectedClosingBalance = *meta.ClosingBalance
		res.Discrepancy = res.CalculatedClosingBalance.Sub(*meta.ClosingBalance).Abs()

		switch {
		case res.Discrepancy.LessThanOrEqual(v.WarnLimit):
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"balance reconciled: calculated closing balance %s matches declared %s",
				res.CalculatedClosingBalance, meta.ClosingBalance))
		case res.Discrepancy.LessThanOrEqual(v.FailLimit):
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"closing balance off by %s (likely rounding): calculated %s, declared %s",
				res.Discrepancy, res.CalculatedClosingBalance, meta.ClosingBalance))
		default:
			res.IsValid = false
			res.Errors = append(res.Errors, fmt.Sprintf(
				"closing balance mismatch of %s exceeds limit %s: calculated %s, declared %s",
				res.Discrepancy, v.FailLimit, res.CalculatedClosingBalance, meta.ClosingBalance))
		}
	} else {
		res.ExpectedClosingBalance = res.CalculatedClosingBalance
		res.Discrepancy = decimal.Zero
		res.Warnings = append(res.Warnings,
			"no declared closing balance: using calculated value, arithmetic not independently verified")
	}

	v.checkContinuity(opening, txs, res)

	res.AccountNumberValid = meta.AccountNumber != ""
	if !res.AccountNumberValid {
		res.Warnings = append(res.Warnings, "statement metadata has no account number")
	}

	return res
}

// checkContinuity walks the transactions in statement order and compares each
// row's reported running balance, when present, against the expected value
// seeded from the opening balance. Any one row's balance may simply be
// unextracted, so discontinuities are counted as a warning and never fail
// validation on their own.
func (v *BalanceValidator) checkContinuity(opening decimal.Decimal, txs []*domain.Transaction, res *domain.ReconciliationResult) {
	running := opening
	reported := 0
	discontinuities := 0

	for _, tx := range txs {
		running = running.Add(tx.Net())
		if tx.Balance == nil {
			continue
		}
		reported++
		if tx.Balance.Sub(running).Abs().GreaterThan(v.WarnLimit) {
			discontinuities++
		}
		// Re-seed from the reported balance so one bad row does not cascade.
		running = *tx.Balance
	}

	if discontinuities > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d of %d reported running balances do not match the computed sequence",
			discontinuities, reported))
		if discontinuities*2 > reported {
			res.Warnings = append(res.Warnings,
				"more than half of the reported running balances disagree: review the extraction output")
		}
	}
}
