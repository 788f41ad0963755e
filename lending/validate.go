package lending

import (
	"strings"

	"github.com/warp/loanbook/ledger"
)

// =============================================================================
// INPUT VALIDATION - runs before anything is written
// =============================================================================

func requireName(field, value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", ledger.Invalid(field, ledger.ErrEmptyName)
	}
	return name, nil
}

func requirePositive(field string, amount ledger.Money) error {
	if !amount.IsPositive() {
		return ledger.Invalid(field, ledger.ErrInvalidAmount)
	}
	return nil
}

// validateLoanTerms checks amount > 0, installments > 0 and
// payable >= amount.
func validateLoanTerms(amount, payable ledger.Money, installments int) error {
	if err := requirePositive("loanAmount", amount); err != nil {
		return err
	}
	if err := requirePositive("totalPayable", payable); err != nil {
		return err
	}
	if installments <= 0 {
		return ledger.Invalid("totalInstallments", ledger.ErrInvalidInstallments)
	}
	if payable.LessThan(amount) {
		return ledger.Invalid("totalPayable", ledger.ErrPayableBelowPrincipal)
	}
	return nil
}

// validateBackfill accepts either no backfill (both zero) or a positive
// count, at most the loan's installments, with a positive amount.
func validateBackfill(installments, totalInstallments int, amount ledger.Money) error {
	if installments < 0 || installments > totalInstallments {
		return ledger.Invalid("backfillInstallments", ledger.ErrInvalidInstallments)
	}
	if amount.IsNegative() {
		return ledger.Invalid("backfillAmount", ledger.ErrInvalidAmount)
	}
	if installments > 0 && !amount.IsPositive() {
		return ledger.Invalid("backfillAmount", ledger.ErrInvalidAmount)
	}
	if amount.IsPositive() && installments == 0 {
		return ledger.Invalid("backfillInstallments", ledger.ErrInvalidInstallments)
	}
	return nil
}

// validatePayment requires non-negative parts with a positive total.
func validatePayment(online, offline ledger.Money) error {
	if online.IsNegative() {
		return ledger.Invalid("onlineAmount", ledger.ErrInvalidAmount)
	}
	if offline.IsNegative() {
		return ledger.Invalid("offlineAmount", ledger.ErrInvalidAmount)
	}
	if !online.Add(offline).IsPositive() {
		return ledger.Invalid("totalAmount", ledger.ErrInvalidAmount)
	}
	return nil
}

func validateAdjustment(amount ledger.Money) error {
	if amount.IsZero() {
		return ledger.Invalid("amount", ledger.ErrZeroAmount)
	}
	return nil
}
