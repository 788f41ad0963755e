/*
summary.go - Loan summary engine (a customer's current loan)

PURPOSE:
  Answers "where does this borrower stand right now?": which loan is open,
  how much has been paid against it, how much and how many installments
  remain, and whether they already paid today.

ALGORITHM:
  1. Keep events whose payload names the customer.
  2. Take NEW_LOAN / RENEW_LOAN events, stable-sort ascending by CreatedAt,
     and pick the last one as the active loan. On equal timestamps the one
     later in input order wins.
  3. No loan: HasLoan=false, zero amounts, IsFullyPaid=true.
  4. Sum payments whose LoanEventID is the active loan. Onboarding payments
     count toward paid totals.
  5. Remaining amount and installments are clamped at zero.
  6. PaidToday is true iff a non-onboarding payment was created on now's
     calendar day (now's location).

SEE ALSO:
  - history.go: Same selection, one section per loan
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type LoanType string

const (
	LoanNew     LoanType = "NEW"
	LoanRenewed LoanType = "RENEWED"
)

func loanTypeOf(t EventType) LoanType {
	if t == EventRenewLoan {
		return LoanRenewed
	}
	return LoanNew
}

// LoanSummary is the current-loan state of one customer.
type LoanSummary struct {
	Customer              Customer `json:"customer"`
	ActiveLoanEventID     EventID  `json:"activeLoanEventId,omitempty"`
	LoanType              LoanType `json:"loanType,omitempty"`
	LoanAmount            Money    `json:"loanAmount"`
	TotalPayable          Money    `json:"totalPayable"`
	TotalInstallments     int      `json:"totalInstallments"`
	InstallmentsPaid      int      `json:"installmentsPaid"`
	AmountPaid            Money    `json:"amountPaid"`
	RemainingAmount       Money    `json:"remainingAmount"`
	RemainingInstallments int      `json:"remainingInstallments"`
	PerInstallment        Money    `json:"perInstallment"`
	IsFullyPaid           bool     `json:"isFullyPaid"`
	PaidToday             bool     `json:"paidToday"`
	HasLoan               bool     `json:"hasLoan"`
}

// CustomerLoanSummary derives the customer's current loan state.
func CustomerLoanSummary(c Customer, events []FinanceEvent, now time.Time) LoanSummary {
	own := customerEvents(c.ID, events)
	loans := loanEvents(own)
	if len(loans) == 0 {
		return LoanSummary{
			Customer:        c,
			LoanAmount:      decimal.Zero,
			TotalPayable:    decimal.Zero,
			AmountPaid:      decimal.Zero,
			RemainingAmount: decimal.Zero,
			PerInstallment:  decimal.Zero,
			IsFullyPaid:     true,
		}
	}

	active := loans[len(loans)-1]
	terms, _ := active.Loan()
	payments := paymentsFor(active.EventID, own)

	paid := decimal.Zero
	paidToday := false
	for _, e := range payments {
		p, _ := e.Payment()
		paid = paid.Add(p.TotalAmount)
		if !p.IsOnboarding && SameDay(e.CreatedAt, now, now.Location()) {
			paidToday = true
		}
	}

	remaining := maxZero(terms.TotalPayable.Sub(paid))
	remainingInst := terms.TotalInstallments - len(payments)
	if remainingInst < 0 {
		remainingInst = 0
	}

	return LoanSummary{
		Customer:              c,
		ActiveLoanEventID:     active.EventID,
		LoanType:              loanTypeOf(active.EventType),
		LoanAmount:            terms.LoanAmount,
		TotalPayable:          terms.TotalPayable,
		TotalInstallments:     terms.TotalInstallments,
		InstallmentsPaid:      len(payments),
		AmountPaid:            paid,
		RemainingAmount:       remaining,
		RemainingInstallments: remainingInst,
		PerInstallment:        perInstallment(terms),
		IsFullyPaid:           !remaining.IsPositive(),
		PaidToday:             paidToday,
		HasLoan:               true,
	}
}

func perInstallment(t LoanTerms) Money {
	if t.TotalInstallments <= 0 {
		return decimal.Zero
	}
	return t.TotalPayable.Div(decimal.NewFromInt(int64(t.TotalInstallments)))
}

// customerEvents keeps events whose payload names the customer, preserving
// input order.
func customerEvents(id CustomerID, events []FinanceEvent) []FinanceEvent {
	var out []FinanceEvent
	for _, e := range events {
		if cid, ok := e.CustomerID(); ok && cid == id {
			out = append(out, e)
		}
	}
	return out
}

// loanEvents returns loan-creating events sorted oldest first. The sort is
// stable so equal timestamps keep input order.
func loanEvents(events []FinanceEvent) []FinanceEvent {
	var loans []FinanceEvent
	for _, e := range events {
		if e.EventType.IsLoan() {
			loans = append(loans, e)
		}
	}
	sort.SliceStable(loans, func(i, j int) bool {
		return loans[i].CreatedAt.Before(loans[j].CreatedAt)
	})
	return loans
}

func paymentsFor(loanID EventID, events []FinanceEvent) []FinanceEvent {
	var out []FinanceEvent
	for _, e := range events {
		if p, ok := e.Payment(); ok && p.LoanEventID == loanID {
			out = append(out, e)
		}
	}
	return out
}
