package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/loanbook/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var ist = time.FixedZone("IST", 5*3600+1800)

// now is 15 Oct 2026, 15:00 IST.
var now = time.Date(2026, time.October, 15, 15, 0, 0, 0, ist)

func at(day, hour int) time.Time {
	return time.Date(2026, time.October, day, hour, 0, 0, 0, ist)
}

func ev(id string, createdAt time.Time, p ledger.Payload) ledger.FinanceEvent {
	return ledger.FinanceEvent{
		EventID:       ledger.EventID(id),
		SchemaVersion: ledger.SchemaVersion,
		AccountID:     "default",
		AreaID:        "area-1",
		CreatedBy:     "owner",
		DeviceID:      "device-1",
		CreatedAt:     createdAt,
		EventType:     p.EventType(),
		Payload:       p,
	}
}

func newLoan(customer ledger.CustomerID, amount, payable int64, installments int) ledger.NewLoan {
	return ledger.NewLoan{LoanTerms: ledger.LoanTerms{
		CustomerID:        customer,
		CustomerName:      "Customer " + string(customer),
		LoanAmount:        ledger.NewMoney(amount),
		TotalPayable:      ledger.NewMoney(payable),
		TotalInstallments: installments,
	}}
}

func renewLoan(customer ledger.CustomerID, prev ledger.EventID, amount, payable int64, installments int) ledger.RenewLoan {
	return ledger.RenewLoan{
		LoanTerms: ledger.LoanTerms{
			CustomerID:        customer,
			CustomerName:      "Customer " + string(customer),
			LoanAmount:        ledger.NewMoney(amount),
			TotalPayable:      ledger.NewMoney(payable),
			TotalInstallments: installments,
		},
		PreviousLoanEventID: prev,
	}
}

func payment(customer ledger.CustomerID, loan ledger.EventID, online, offline int64) ledger.InstallmentPayment {
	return ledger.InstallmentPayment{
		CustomerID:    customer,
		CustomerName:  "Customer " + string(customer),
		LoanEventID:   loan,
		OnlineAmount:  ledger.NewMoney(online),
		OfflineAmount: ledger.NewMoney(offline),
		TotalAmount:   ledger.NewMoney(online + offline),
	}
}

func onboardingPayment(customer ledger.CustomerID, loan ledger.EventID, amount int64) ledger.InstallmentPayment {
	p := payment(customer, loan, 0, amount)
	p.IsOnboarding = true
	return p
}

func assertMoney(t *testing.T, want int64, got ledger.Money) {
	t.Helper()
	assert.True(t, ledger.NewMoney(want).Equal(got), "want %d, got %s", want, got.String())
}
