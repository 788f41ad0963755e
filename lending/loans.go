package lending

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/loanbook/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// LOANS
// =============================================================================

// NewLoanInput describes a new loan. BackfillInstallments and
// BackfillAmount onboard a loan that already had payments before it was
// entered here: that many offline payments summing to BackfillAmount are
// recorded as onboarding history.
type NewLoanInput struct {
	CustomerID           ledger.CustomerID
	LoanAmount           ledger.Money
	TotalPayable         ledger.Money
	TotalInstallments    int
	BackfillInstallments int
	BackfillAmount       ledger.Money
}

// CreateNewLoan appends a NEW_LOAN, plus its backfilled payments when
// requested. Loan and backfill are written as one atomic batch. The first
// returned event is the loan.
func (s *Service) CreateNewLoan(ctx context.Context, in NewLoanInput) ([]ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateLoanTerms(in.LoanAmount, in.TotalPayable, in.TotalInstallments); err != nil {
		return nil, err
	}
	if err := validateBackfill(in.BackfillInstallments, in.TotalInstallments, in.BackfillAmount); err != nil {
		return nil, err
	}
	c, err := s.customerInArea(ctx, areaID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	loan := ledger.NewLoan{LoanTerms: ledger.LoanTerms{
		CustomerID:        c.ID,
		CustomerName:      c.Name,
		LoanAmount:        in.LoanAmount,
		TotalPayable:      in.TotalPayable,
		TotalInstallments: in.TotalInstallments,
	}}

	if in.BackfillInstallments == 0 {
		e, err := s.append(ctx, areaID, loan)
		if err != nil {
			return nil, err
		}
		return []ledger.FinanceEvent{e}, nil
	}

	stamped, err := s.ledger.Stamp(ctx, areaID, loan)
	if err != nil {
		return nil, err
	}
	loanEvent := stamped[0]

	history := make([]ledger.Payload, 0, in.BackfillInstallments)
	for _, amount := range splitEvenly(in.BackfillAmount, in.BackfillInstallments) {
		history = append(history, ledger.InstallmentPayment{
			CustomerID:    c.ID,
			CustomerName:  c.Name,
			LoanEventID:   loanEvent.EventID,
			OnlineAmount:  decimal.Zero,
			OfflineAmount: amount,
			TotalAmount:   amount,
			IsOnboarding:  true,
		})
	}
	payments, err := s.ledger.Stamp(ctx, areaID, history...)
	if err != nil {
		return nil, err
	}

	events := append(stamped, payments...)
	if err := s.ledger.Commit(ctx, events); err != nil {
		return nil, fmt.Errorf("append onboarded loan: %w", err)
	}
	for _, e := range events {
		s.logAppended(e)
	}
	return events, nil
}

// splitEvenly divides total into n parts truncated to two decimal places;
// the last part takes the remainder so the parts add up to total exactly.
func splitEvenly(total ledger.Money, n int) []ledger.Money {
	count := decimal.NewFromInt(int64(n))
	part := total.Div(count).Truncate(2)
	parts := make([]ledger.Money, n)
	for i := 0; i < n-1; i++ {
		parts[i] = part
	}
	parts[n-1] = total.Sub(part.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

type RenewLoanInput struct {
	CustomerID          ledger.CustomerID
	PreviousLoanEventID ledger.EventID
	LoanAmount          ledger.Money
	TotalPayable        ledger.Money
	TotalInstallments   int
}

// RenewLoan appends a RENEW_LOAN that replaces the customer's current loan.
// The previous loan must be one of the customer's loan events. Its unpaid
// balance, if any, is not carried into the new terms.
func (s *Service) RenewLoan(ctx context.Context, in RenewLoanInput) (ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}
	if err := validateLoanTerms(in.LoanAmount, in.TotalPayable, in.TotalInstallments); err != nil {
		return ledger.FinanceEvent{}, err
	}
	c, err := s.customerInArea(ctx, areaID, in.CustomerID)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}
	if _, err := s.customerLoan(ctx, c.ID, in.PreviousLoanEventID); err != nil {
		return ledger.FinanceEvent{}, err
	}

	return s.append(ctx, areaID, ledger.RenewLoan{
		LoanTerms: ledger.LoanTerms{
			CustomerID:        c.ID,
			CustomerName:      c.Name,
			LoanAmount:        in.LoanAmount,
			TotalPayable:      in.TotalPayable,
			TotalInstallments: in.TotalInstallments,
		},
		PreviousLoanEventID: in.PreviousLoanEventID,
	})
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentInput struct {
	CustomerID    ledger.CustomerID
	LoanEventID   ledger.EventID
	OnlineAmount  ledger.Money
	OfflineAmount ledger.Money
}

// PaymentResult carries the appended event. Overpaid is set when the
// payment exceeded what was still owed on the loan; the payment is recorded
// regardless.
type PaymentResult struct {
	Event    ledger.FinanceEvent `json:"event"`
	Overpaid bool                `json:"overpaid"`
}

// MakePayment records an installment against one of the customer's loans.
func (s *Service) MakePayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return PaymentResult{}, err
	}
	if err := validatePayment(in.OnlineAmount, in.OfflineAmount); err != nil {
		return PaymentResult{}, err
	}
	c, err := s.customerInArea(ctx, areaID, in.CustomerID)
	if err != nil {
		return PaymentResult{}, err
	}
	section, err := s.customerLoan(ctx, c.ID, in.LoanEventID)
	if err != nil {
		return PaymentResult{}, err
	}

	total := in.OnlineAmount.Add(in.OfflineAmount)
	e, err := s.append(ctx, areaID, ledger.InstallmentPayment{
		CustomerID:    c.ID,
		CustomerName:  c.Name,
		LoanEventID:   in.LoanEventID,
		OnlineAmount:  in.OnlineAmount,
		OfflineAmount: in.OfflineAmount,
		TotalAmount:   total,
	})
	if err != nil {
		return PaymentResult{}, err
	}

	overpaid := total.GreaterThan(section.RemainingAmount)
	if overpaid {
		s.log.Warn("payment exceeds remaining amount",
			zap.String("customer_id", string(c.ID)),
			zap.String("loan_event_id", string(in.LoanEventID)),
			zap.String("amount", s.formatter.Currency(total)),
			zap.String("remaining", s.formatter.Currency(section.RemainingAmount)),
		)
	}
	return PaymentResult{Event: e, Overpaid: overpaid}, nil
}

// =============================================================================
// CASH MOVEMENTS
// =============================================================================

// AddExpense records money spent from the area's cash.
func (s *Service) AddExpense(ctx context.Context, amount ledger.Money, description string) (ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}
	if err := requirePositive("amount", amount); err != nil {
		return ledger.FinanceEvent{}, err
	}
	return s.append(ctx, areaID, ledger.Expense{Amount: amount, Description: strings.TrimSpace(description)})
}

// AddCapital records money injected into the area's cash.
func (s *Service) AddCapital(ctx context.Context, amount ledger.Money, description string) (ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}
	if err := requirePositive("amount", amount); err != nil {
		return ledger.FinanceEvent{}, err
	}
	return s.append(ctx, areaID, ledger.CapitalAdded{Amount: amount, Description: strings.TrimSpace(description)})
}

// CreateAdjustment corrects the cash position with a signed amount. The
// referenced event must exist in the selected area.
func (s *Service) CreateAdjustment(ctx context.Context, referenceEventID ledger.EventID, amount ledger.Money, reason string) (ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}
	if err := validateAdjustment(amount); err != nil {
		return ledger.FinanceEvent{}, err
	}
	reason, err = requireName("reason", reason)
	if err != nil {
		return ledger.FinanceEvent{}, err
	}

	ref, err := s.ledger.Get(ctx, referenceEventID)
	if err != nil {
		return ledger.FinanceEvent{}, fmt.Errorf("load referenced event: %w", err)
	}
	if ref == nil || ref.AreaID != areaID {
		return ledger.FinanceEvent{}, ledger.ErrEventNotFound
	}

	return s.append(ctx, areaID, ledger.Adjustment{
		ReferenceEventID: referenceEventID,
		Amount:           amount,
		Reason:           reason,
	})
}

// =============================================================================
// REFERENCE CHECKS
// =============================================================================

func (s *Service) customerInArea(ctx context.Context, areaID ledger.AreaID, id ledger.CustomerID) (ledger.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return ledger.Customer{}, err
	}
	if c.AreaID != areaID {
		return ledger.Customer{}, ledger.ErrCustomerNotFound
	}
	return c, nil
}

// customerLoan returns the history section of one of the customer's loans,
// or ErrEventNotFound when loanID is not a loan event of that customer.
func (s *Service) customerLoan(ctx context.Context, customerID ledger.CustomerID, loanID ledger.EventID) (ledger.LoanSection, error) {
	c, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return ledger.LoanSection{}, err
	}
	events, err := s.ledger.ListByCustomer(ctx, customerID)
	if err != nil {
		return ledger.LoanSection{}, fmt.Errorf("load customer events: %w", err)
	}
	for _, section := range ledger.CustomerLoanSections(c, events) {
		if section.LoanEvent.EventID == loanID {
			return section, nil
		}
	}
	return ledger.LoanSection{}, ledger.ErrEventNotFound
}
