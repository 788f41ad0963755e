/*
dashboard.go - Ledger fold engine (cash position of an area)

PURPOSE:
  Folds an area's events into the money-flow snapshot shown on the
  dashboard: what was lent, what was collected, what was spent, and the
  resulting cash in hand.

ALGORITHM:
  1. Opening balance = sum of ALL onboarding balances, unfiltered. It is a
     standing fact, not a period quantity.
  2. Apply the date filter to get the working set.
  3. Skip onboarding payments (synthetic backfilled history).
  4. Fold by type:
       NEW_LOAN            totalGiven, totalGivenNew, totalPayableNew
       RENEW_LOAN          totalGiven, totalGivenRenewed, totalPayableRenewed
       INSTALLMENT_PAYMENT totalCollectedOnline / totalCollectedOffline
       EXPENSE             expenses
       CAPITAL_ADDED       capitalAdded
       ADJUSTMENT_EVENT    adjustments (signed)
  5. totalCollected = online + offline
     vkNew     = totalPayableNew - totalGivenNew         (0 if nothing given)
     vkRenewed = totalPayableRenewed - totalGivenRenewed (0 if nothing given)
     vk        = vkNew + vkRenewed
  6. closingBalance = opening + collected + capital - given - expenses + adjustments

NUMERICS:
  Decimal arithmetic, no rounding. Rounding happens only in format.go.

INCREMENTAL USE:
  Tally is the accumulator behind CalculateDashboard. A caller holding a
  Tally can Apply new events as they are appended instead of refolding the
  whole log, as long as events are applied in any order (the fold is
  commutative). Out-of-band deletes require a fresh Tally.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardData is the aggregate money-flow snapshot over a set of events.
type DashboardData struct {
	OpeningBalance        Money `json:"openingBalance"`
	TotalGiven            Money `json:"totalGiven"`
	TotalGivenNew         Money `json:"totalGivenNew"`
	TotalGivenRenewed     Money `json:"totalGivenRenewed"`
	TotalPayableNew       Money `json:"totalPayableNew"`
	TotalPayableRenewed   Money `json:"totalPayableRenewed"`
	TotalCollectedOnline  Money `json:"totalCollectedOnline"`
	TotalCollectedOffline Money `json:"totalCollectedOffline"`
	TotalCollected        Money `json:"totalCollected"`
	VK                    Money `json:"vk"`
	VKNew                 Money `json:"vkNew"`
	VKRenewed             Money `json:"vkRenewed"`
	Expenses              Money `json:"expenses"`
	CapitalAdded          Money `json:"capitalAdded"`
	Adjustments           Money `json:"adjustments"`
	ClosingBalance        Money `json:"closingBalance"`
}

// CalculateDashboard folds events into a dashboard snapshot. The opening
// balance always uses the full event set; everything else uses the events
// inside the filter window.
func CalculateDashboard(events []FinanceEvent, f DateFilter, now time.Time) DashboardData {
	opening := OpeningBalance(events)

	var t Tally
	for _, e := range FilterByDate(events, f, now) {
		t.Apply(e)
	}
	return t.Result(opening)
}

// OpeningBalance sums every ONBOARDING_BALANCE amount.
func OpeningBalance(events []FinanceEvent) Money {
	total := decimal.Zero
	for _, e := range events {
		if p, ok := e.Payload.(OnboardingBalance); ok {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// =============================================================================
// TALLY - PayloadVisitor accumulating period totals
// =============================================================================

// Tally accumulates period totals. The zero value is ready to use.
type Tally struct {
	givenNew        Money
	givenRenewed    Money
	payableNew      Money
	payableRenewed  Money
	collectedOnline Money
	collectedOff    Money
	expenses        Money
	capital         Money
	adjustments     Money
}

var _ PayloadVisitor = (*Tally)(nil)

// Apply folds one event into the tally. Onboarding payments are ignored.
func (t *Tally) Apply(e FinanceEvent) {
	if e.Payload == nil || e.IsOnboardingPayment() {
		return
	}
	e.Payload.Accept(t)
}

// VisitOnboardingBalance is a no-op: opening balance is computed over the
// unfiltered log.
func (t *Tally) VisitOnboardingBalance(OnboardingBalance) {}

func (t *Tally) VisitNewLoan(p NewLoan) {
	t.givenNew = t.givenNew.Add(p.LoanAmount)
	t.payableNew = t.payableNew.Add(p.TotalPayable)
}

func (t *Tally) VisitRenewLoan(p RenewLoan) {
	t.givenRenewed = t.givenRenewed.Add(p.LoanAmount)
	t.payableRenewed = t.payableRenewed.Add(p.TotalPayable)
}

func (t *Tally) VisitInstallmentPayment(p InstallmentPayment) {
	t.collectedOnline = t.collectedOnline.Add(p.OnlineAmount)
	t.collectedOff = t.collectedOff.Add(p.OfflineAmount)
}

func (t *Tally) VisitExpense(p Expense) {
	t.expenses = t.expenses.Add(p.Amount)
}

func (t *Tally) VisitCapitalAdded(p CapitalAdded) {
	t.capital = t.capital.Add(p.Amount)
}

func (t *Tally) VisitAdjustment(p Adjustment) {
	t.adjustments = t.adjustments.Add(p.Amount)
}

// Result derives the dashboard from the accumulated totals.
func (t *Tally) Result(opening Money) DashboardData {
	d := DashboardData{
		OpeningBalance:        opening,
		TotalGivenNew:         t.givenNew,
		TotalGivenRenewed:     t.givenRenewed,
		TotalGiven:            t.givenNew.Add(t.givenRenewed),
		TotalPayableNew:       t.payableNew,
		TotalPayableRenewed:   t.payableRenewed,
		TotalCollectedOnline:  t.collectedOnline,
		TotalCollectedOffline: t.collectedOff,
		TotalCollected:        t.collectedOnline.Add(t.collectedOff),
		Expenses:              t.expenses,
		CapitalAdded:          t.capital,
		Adjustments:           t.adjustments,
	}

	d.VKNew = margin(t.payableNew, t.givenNew)
	d.VKRenewed = margin(t.payableRenewed, t.givenRenewed)
	d.VK = d.VKNew.Add(d.VKRenewed)

	d.ClosingBalance = d.OpeningBalance.
		Add(d.TotalCollected).
		Add(d.CapitalAdded).
		Sub(d.TotalGiven).
		Sub(d.Expenses).
		Add(d.Adjustments)
	return d
}

func margin(payable, given Money) Money {
	if !given.IsPositive() {
		return decimal.Zero
	}
	return payable.Sub(given)
}
