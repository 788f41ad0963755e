/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types already
  carry camelCase JSON tags, so responses reuse them and only add display
  strings (formatted money and dates) the client would otherwise compute.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Areas/registry:  CreateAreaRequest, CreateVillageRequest, CreateCustomerRequest
  Loans:           NewLoanRequest, RenewLoanRequest, PaymentRequest
  Cash:            CashRequest, AdjustmentRequest
  Views:           EventDTO, DashboardDTO, SummaryDTO, PaymentDTO
  Scenarios:       LoadScenarioRequest

MONEY:
  Amounts decode from JSON numbers or decimal strings ("1234.50") and
  encode as decimal strings. They are never floats.

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required ids, counts). Money rules (positive, payable >= principal)
  live in the lending service so every caller gets them.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Money
*/
package api

import (
	"time"

	"github.com/warp/loanbook/ledger"
	"github.com/warp/loanbook/lending"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateAreaRequest struct {
	Name           string       `json:"name" validate:"required,max=100"`
	IsOnboarding   bool         `json:"isOnboarding"`
	OpeningBalance ledger.Money `json:"openingBalance"`
}

type CreateVillageRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateCustomerRequest struct {
	VillageID string `json:"villageId" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
}

// NewLoanRequest creates a loan. Backfill fields onboard a loan that was
// already being repaid.
type NewLoanRequest struct {
	CustomerID           string       `json:"customerId" validate:"required"`
	LoanAmount           ledger.Money `json:"loanAmount"`
	TotalPayable         ledger.Money `json:"totalPayable"`
	TotalInstallments    int          `json:"totalInstallments" validate:"gt=0"`
	BackfillInstallments int          `json:"backfillInstallments" validate:"gte=0,ltefield=TotalInstallments"`
	BackfillAmount       ledger.Money `json:"backfillAmount"`
}

type RenewLoanRequest struct {
	CustomerID          string       `json:"customerId" validate:"required"`
	PreviousLoanEventID string       `json:"previousLoanEventId" validate:"required"`
	LoanAmount          ledger.Money `json:"loanAmount"`
	TotalPayable        ledger.Money `json:"totalPayable"`
	TotalInstallments   int          `json:"totalInstallments" validate:"gt=0"`
}

type PaymentRequest struct {
	CustomerID    string       `json:"customerId" validate:"required"`
	LoanEventID   string       `json:"loanEventId" validate:"required"`
	OnlineAmount  ledger.Money `json:"onlineAmount"`
	OfflineAmount ledger.Money `json:"offlineAmount"`
}

// CashRequest is the body for expenses and capital injections.
type CashRequest struct {
	Amount      ledger.Money `json:"amount"`
	Description string       `json:"description" validate:"max=200"`
}

type AdjustmentRequest struct {
	ReferenceEventID string       `json:"referenceEventId" validate:"required"`
	Amount           ledger.Money `json:"amount"`
	Reason           string       `json:"reason" validate:"required,max=200"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EventDTO is a ledger event with its headline amount and display strings.
type EventDTO struct {
	EventID          ledger.EventID     `json:"eventId"`
	EventType        ledger.EventType   `json:"eventType"`
	Label            string             `json:"label"`
	AreaID           ledger.AreaID      `json:"areaId"`
	CustomerID       ledger.CustomerID  `json:"customerId,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	CreatedAtDisplay string             `json:"createdAtDisplay"`
	Amount           ledger.Money       `json:"amount"`
	AmountDisplay    string             `json:"amountDisplay"`
	PaymentMode      ledger.PaymentMode `json:"paymentMode,omitempty"`
	Payload          ledger.Payload     `json:"payload"`
}

// DashboardDTO wraps the dashboard figures with the window they cover and
// formatted headline values.
type DashboardDTO struct {
	ledger.DashboardData
	Period  string            `json:"period"`
	Display map[string]string `json:"display"`
}

// SummaryDTO is a customer's current loan state plus display strings.
type SummaryDTO struct {
	ledger.LoanSummary
	AmountPaidDisplay     string `json:"amountPaidDisplay"`
	RemainingDisplay      string `json:"remainingDisplay"`
	PerInstallmentDisplay string `json:"perInstallmentDisplay"`
}

type VillageGroupDTO struct {
	VillageID   ledger.VillageID `json:"villageId,omitempty"`
	VillageName string           `json:"villageName"`
	Customers   []SummaryDTO     `json:"customers"`
}

type SectionDTO struct {
	ledger.LoanSection
	StartDateDisplay  string `json:"startDateDisplay"`
	ClosedDateDisplay string `json:"closedDateDisplay,omitempty"`
}

// PaymentDTO is the result of recording a payment. Overpaid warns the
// client that more was paid than was still owed.
type PaymentDTO struct {
	Event    EventDTO `json:"event"`
	Overpaid bool     `json:"overpaid"`
}

type ScenarioDTO = lending.Scenario

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldErrorDTO describes one failed request field.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEventDTO(e ledger.FinanceEvent, f *ledger.Formatter) EventDTO {
	amount := headlineAmount(e.Payload)
	dto := EventDTO{
		EventID:          e.EventID,
		EventType:        e.EventType,
		Label:            e.EventType.Label(),
		AreaID:           e.AreaID,
		CreatedAt:        e.CreatedAt,
		CreatedAtDisplay: ledger.FormatDateTime(e.CreatedAt),
		Amount:           amount,
		AmountDisplay:    f.Currency(amount),
		Payload:          e.Payload,
	}
	if id, ok := e.CustomerID(); ok {
		dto.CustomerID = id
	}
	if e.EventType == ledger.EventInstallmentPayment {
		dto.PaymentMode = ledger.PaymentModeOf(e)
	}
	return dto
}

func toEventDTOs(events []ledger.FinanceEvent, f *ledger.Formatter) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e, f)
	}
	return dtos
}

func toDashboardDTO(d ledger.DashboardData, period string, f *ledger.Formatter) DashboardDTO {
	return DashboardDTO{
		DashboardData: d,
		Period:        period,
		Display: map[string]string{
			"openingBalance": f.Currency(d.OpeningBalance),
			"totalGiven":     f.Currency(d.TotalGiven),
			"totalCollected": f.Currency(d.TotalCollected),
			"vk":             f.Currency(d.VK),
			"expenses":       f.Currency(d.Expenses),
			"capitalAdded":   f.Currency(d.CapitalAdded),
			"adjustments":    f.Currency(d.Adjustments),
			"closingBalance": f.Currency(d.ClosingBalance),
		},
	}
}

func toSummaryDTO(s ledger.LoanSummary, f *ledger.Formatter) SummaryDTO {
	return SummaryDTO{
		LoanSummary:           s,
		AmountPaidDisplay:     f.Currency(s.AmountPaid),
		RemainingDisplay:      f.Currency(s.RemainingAmount),
		PerInstallmentDisplay: f.Currency(s.PerInstallment),
	}
}

func toSummaryDTOs(summaries []ledger.LoanSummary, f *ledger.Formatter) []SummaryDTO {
	dtos := make([]SummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toSummaryDTO(s, f)
	}
	return dtos
}

func toSectionDTOs(sections []ledger.LoanSection) []SectionDTO {
	dtos := make([]SectionDTO, len(sections))
	for i, s := range sections {
		dtos[i] = SectionDTO{LoanSection: s, StartDateDisplay: ledger.FormatDate(s.StartDate)}
		if s.ClosedDate != nil {
			dtos[i].ClosedDateDisplay = ledger.FormatDate(*s.ClosedDate)
		}
	}
	return dtos
}

// =============================================================================
// HEADLINE AMOUNT - the one figure shown in event lists
// =============================================================================

type headline struct {
	amount ledger.Money
}

var _ ledger.PayloadVisitor = (*headline)(nil)

func headlineAmount(p ledger.Payload) ledger.Money {
	h := &headline{amount: ledger.NewMoney(0)}
	if p != nil {
		p.Accept(h)
	}
	return h.amount
}

func (h *headline) VisitOnboardingBalance(p ledger.OnboardingBalance) {
	h.amount = p.Amount
}

func (h *headline) VisitNewLoan(p ledger.NewLoan) {
	h.amount = p.LoanAmount
}

func (h *headline) VisitRenewLoan(p ledger.RenewLoan) {
	h.amount = p.LoanAmount
}

func (h *headline) VisitInstallmentPayment(p ledger.InstallmentPayment) {
	h.amount = p.TotalAmount
}

func (h *headline) VisitExpense(p ledger.Expense) {
	h.amount = p.Amount
}

func (h *headline) VisitCapitalAdded(p ledger.CapitalAdded) {
	h.amount = p.Amount
}

func (h *headline) VisitAdjustment(p ledger.Adjustment) {
	h.amount = p.Amount
}
