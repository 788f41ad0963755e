package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/loanbook/ledger"
)

var customerA = ledger.Customer{ID: "a", AreaID: "area-1", VillageID: "v-1", Name: "Asha", SerialNumber: 1}

// =============================================================================
// LOAN SUMMARY TESTS
// =============================================================================

func TestCustomerLoanSummary_TwoCashPayments(t *testing.T) {
	// GIVEN: NEW_LOAN 10000 payable 12000 over 12, two cash payments of 500
	// WHEN: Summarizing
	// THEN: 1000 paid, 2 installments, 11000 and 10 installments remaining

	events := []ledger.FinanceEvent{
		ev("loan", at(1, 9), newLoan("a", 10000, 12000, 12)),
		ev("p1", at(2, 9), payment("a", "loan", 0, 500)),
		ev("p2", at(3, 9), payment("a", "loan", 0, 500)),
	}

	s := ledger.CustomerLoanSummary(customerA, events, now)

	assert.True(t, s.HasLoan)
	assert.Equal(t, ledger.EventID("loan"), s.ActiveLoanEventID)
	assert.Equal(t, ledger.LoanNew, s.LoanType)
	assertMoney(t, 1000, s.AmountPaid)
	assert.Equal(t, 2, s.InstallmentsPaid)
	assertMoney(t, 11000, s.RemainingAmount)
	assert.Equal(t, 10, s.RemainingInstallments)
	assertMoney(t, 1000, s.PerInstallment)
	assert.False(t, s.IsFullyPaid)
	assert.False(t, s.PaidToday)
}

func TestCustomerLoanSummary_NoLoan(t *testing.T) {
	events := []ledger.FinanceEvent{
		ev("other", at(1, 9), newLoan("b", 10000, 12000, 12)),
		ev("x", at(1, 10), ledger.Expense{Amount: ledger.NewMoney(10)}),
	}

	s := ledger.CustomerLoanSummary(customerA, events, now)

	assert.False(t, s.HasLoan)
	assert.True(t, s.IsFullyPaid)
	assert.False(t, s.PaidToday)
	assert.Empty(t, s.ActiveLoanEventID)
	assert.Empty(t, s.LoanType)
	assertMoney(t, 0, s.RemainingAmount)
	assertMoney(t, 0, s.AmountPaid)
	assert.Equal(t, 0, s.RemainingInstallments)
	assert.Equal(t, customerA, s.Customer)
}

func TestCustomerLoanSummary_LatestLoanWins(t *testing.T) {
	// GIVEN: A new loan with a payment, then a renewal
	// WHEN: Summarizing
	// THEN: The renewal is active and earlier payments don't count against it

	events := []ledger.FinanceEvent{
		ev("renew", at(5, 9), renewLoan("a", "loan", 8000, 9600, 8)),
		ev("loan", at(1, 9), newLoan("a", 10000, 12000, 12)),
		ev("p1", at(2, 9), payment("a", "loan", 0, 12000)),
	}

	s := ledger.CustomerLoanSummary(customerA, events, now)

	assert.Equal(t, ledger.EventID("renew"), s.ActiveLoanEventID)
	assert.Equal(t, ledger.LoanRenewed, s.LoanType)
	assertMoney(t, 0, s.AmountPaid)
	assertMoney(t, 9600, s.RemainingAmount)
	assert.Equal(t, 8, s.RemainingInstallments)
}

func TestCustomerLoanSummary_EqualTimestampsLaterInputWins(t *testing.T) {
	events := []ledger.FinanceEvent{
		ev("first", at(1, 9), newLoan("a", 1000, 1200, 4)),
		ev("second", at(1, 9), renewLoan("a", "first", 2000, 2400, 4)),
	}

	s := ledger.CustomerLoanSummary(customerA, events, now)

	assert.Equal(t, ledger.EventID("second"), s.ActiveLoanEventID)
}

func TestCustomerLoanSummary_OverpaymentClamps(t *testing.T) {
	events := []ledger.FinanceEvent{
		ev("loan", at(1, 9), newLoan("a", 1000, 1200, 2)),
		ev("p1", at(2, 9), payment("a", "loan", 0, 700)),
		ev("p2", at(3, 9), payment("a", "loan", 0, 700)),
		ev("p3", at(4, 9), payment("a", "loan", 0, 700)),
	}

	s := ledger.CustomerLoanSummary(customerA, events, now)

	assertMoney(t, 2100, s.AmountPaid)
	assertMoney(t, 0, s.RemainingAmount)
	assert.Equal(t, 0, s.RemainingInstallments)
	assert.Equal(t, 3, s.InstallmentsPaid)
	assert.True(t, s.IsFullyPaid)
}

func TestCustomerLoanSummary_InstallmentsAddUp(t *testing.T) {
	events := []ledger.FinanceEvent{
		ev("loan", at(1, 9), newLoan("a", 5000, 6000, 6)),
	}
	for i := 0; i < 6; i++ {
		events = append(events, ev("p"+string(rune('0'+i)), at(2+i, 9), payment("a", "loan", 0, 1000)))

		s := ledger.CustomerLoanSummary(customerA, events, now)
		assert.Equal(t, s.TotalInstallments, s.InstallmentsPaid+s.RemainingInstallments)
	}
}

func TestCustomerLoanSummary_PaidToday(t *testing.T) {
	// GIVEN: A payment earlier today and an onboarding payment also today
	// WHEN: Summarizing
	// THEN: PaidToday is driven by the real payment only

	onlyOnboarding := []ledger.FinanceEvent{
		ev("loan", at(15, 8), newLoan("a", 1000, 1200, 4)),
		ev("ob", at(15, 8).Add(1), onboardingPayment("a", "loan", 300)),
	}
	s := ledger.CustomerLoanSummary(customerA, onlyOnboarding, now)
	assert.False(t, s.PaidToday)
	assertMoney(t, 300, s.AmountPaid)
	assert.Equal(t, 1, s.InstallmentsPaid)

	withReal := append(onlyOnboarding, ev("p", at(15, 10), payment("a", "loan", 300, 0)))
	s = ledger.CustomerLoanSummary(customerA, withReal, now)
	assert.True(t, s.PaidToday)

	yesterday := []ledger.FinanceEvent{
		ev("loan", at(1, 8), newLoan("a", 1000, 1200, 4)),
		ev("p", at(14, 23), payment("a", "loan", 300, 0)),
	}
	s = ledger.CustomerLoanSummary(customerA, yesterday, now)
	assert.False(t, s.PaidToday)
}
