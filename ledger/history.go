/*
history.go - Loan history engine (every loan a customer has had)

PURPOSE:
  Builds the customer's loan timeline: one section per NEW_LOAN or
  RENEW_LOAN with the payments recorded against it.

ALGORITHM:
  1. Keep events whose payload names the customer.
  2. Take loan events, stable-sorted ascending by CreatedAt (same selection
     as the summary engine).
  3. For each loan, collect payments whose LoanEventID is that loan, newest
     first, and sum them. Remaining is clamped at zero.
  4. The last loan is active. Every earlier loan is closed at the CreatedAt
     of the loan that followed it, even with a balance outstanding.
  5. Return sections most recent first.

SEE ALSO:
  - summary.go: The active loan only
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LoanSection is the lifecycle of one loan event and the payments made
// against it.
type LoanSection struct {
	LoanEvent         FinanceEvent   `json:"loanEvent"`
	LoanType          LoanType       `json:"loanType"`
	LoanAmount        Money          `json:"loanAmount"`
	TotalPayable      Money          `json:"totalPayable"`
	TotalInstallments int            `json:"totalInstallments"`
	Payments          []FinanceEvent `json:"payments"`
	AmountPaid        Money          `json:"amountPaid"`
	RemainingAmount   Money          `json:"remainingAmount"`
	InstallmentsPaid  int            `json:"installmentsPaid"`
	IsActive          bool           `json:"isActive"`
	IsClosed          bool           `json:"isClosed"`
	StartDate         time.Time      `json:"startDate"`
	ClosedDate        *time.Time     `json:"closedDate,omitempty"`
}

// CustomerLoanSections returns one section per loan event of the customer,
// most recent first. Only the latest loan is active; every earlier loan is
// closed at the creation time of the loan that followed it, whatever its
// remaining balance.
func CustomerLoanSections(c Customer, events []FinanceEvent) []LoanSection {
	own := customerEvents(c.ID, events)
	loans := loanEvents(own)

	sections := make([]LoanSection, 0, len(loans))
	for i, loan := range loans {
		terms, _ := loan.Loan()
		payments := paymentsFor(loan.EventID, own)
		sort.SliceStable(payments, func(a, b int) bool {
			return payments[a].CreatedAt.After(payments[b].CreatedAt)
		})

		paid := decimal.Zero
		for _, e := range payments {
			p, _ := e.Payment()
			paid = paid.Add(p.TotalAmount)
		}

		s := LoanSection{
			LoanEvent:         loan,
			LoanType:          loanTypeOf(loan.EventType),
			LoanAmount:        terms.LoanAmount,
			TotalPayable:      terms.TotalPayable,
			TotalInstallments: terms.TotalInstallments,
			Payments:          payments,
			AmountPaid:        paid,
			RemainingAmount:   maxZero(terms.TotalPayable.Sub(paid)),
			InstallmentsPaid:  len(payments),
			StartDate:         loan.CreatedAt,
		}
		if i == len(loans)-1 {
			s.IsActive = true
		} else {
			closed := loans[i+1].CreatedAt
			s.IsClosed = true
			s.ClosedDate = &closed
		}
		sections = append(sections, s)
	}

	// Most recent first.
	for i, j := 0, len(sections)-1; i < j; i, j = i+1, j-1 {
		sections[i], sections[j] = sections[j], sections[i]
	}
	return sections
}
