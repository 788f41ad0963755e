/*
event.go - Immutable financial events and their payloads

PURPOSE:
  FinanceEvent is the only thing the ledger ever writes. Every loan given,
  installment collected, expense paid, capital injected and correction made
  is one event. All balances and loan states are derived by folding events.

PAYLOADS:
  The payload is a closed sum type: one struct per event type. The set is
  sealed by an unexported method, and consumers fold it through
  PayloadVisitor, which has one method per variant. Adding a variant means
  adding a visitor method, so every fold stops compiling until it handles
  the new case.

    ONBOARDING_BALANCE   OnboardingBalance{Amount}
    NEW_LOAN             NewLoan{LoanTerms}
    RENEW_LOAN           RenewLoan{LoanTerms, PreviousLoanEventID}
    INSTALLMENT_PAYMENT  InstallmentPayment{..., OnlineAmount, OfflineAmount, TotalAmount, IsOnboarding}
    EXPENSE              Expense{Amount, Description}
    CAPITAL_ADDED        CapitalAdded{Amount, Description}
    ADJUSTMENT_EVENT     Adjustment{ReferenceEventID, Amount (signed), Reason}

CORRECTIONS:
  Events are never edited. A wrong entry is corrected by an ADJUSTMENT_EVENT
  that references the original event id; both stay in the log.

WIRE FORMAT:
  {"eventId": "...", "eventType": "NEW_LOAN", "payload": {"customerId": ...}}
  Decoding dispatches on eventType; unknown types are rejected.

SEE ALSO:
  - ledger.go: Creates events (ids, timestamps, device id)
  - dashboard.go: PayloadVisitor implementation for the cash fold
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is stamped on every event this package creates.
const SchemaVersion = 1

// =============================================================================
// EVENT TYPE
// =============================================================================

// EventType identifies the kind of financial event.
type EventType string

const (
	EventOnboardingBalance  EventType = "ONBOARDING_BALANCE"
	EventNewLoan            EventType = "NEW_LOAN"
	EventRenewLoan          EventType = "RENEW_LOAN"
	EventInstallmentPayment EventType = "INSTALLMENT_PAYMENT"
	EventExpense            EventType = "EXPENSE"
	EventCapitalAdded       EventType = "CAPITAL_ADDED"
	EventAdjustment         EventType = "ADJUSTMENT_EVENT"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{
	EventOnboardingBalance,
	EventNewLoan,
	EventRenewLoan,
	EventInstallmentPayment,
	EventExpense,
	EventCapitalAdded,
	EventAdjustment,
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsLoan reports whether t creates a loan.
func (t EventType) IsLoan() bool {
	return t == EventNewLoan || t == EventRenewLoan
}

// Label returns the human-readable name used in statements and timelines.
func (t EventType) Label() string {
	switch t {
	case EventOnboardingBalance:
		return "Opening Balance"
	case EventNewLoan:
		return "New Loan"
	case EventRenewLoan:
		return "Renewed Loan"
	case EventInstallmentPayment:
		return "Payment"
	case EventExpense:
		return "Expense"
	case EventCapitalAdded:
		return "Capital Added"
	case EventAdjustment:
		return "Adjustment"
	default:
		return string(t)
	}
}

// =============================================================================
// PAYLOADS - Sealed sum type
// =============================================================================

// Payload is the type-specific body of a FinanceEvent.
type Payload interface {
	EventType() EventType
	Accept(v PayloadVisitor)
	sealed()
}

// PayloadVisitor folds over payload variants. Implementations must handle
// every variant.
type PayloadVisitor interface {
	VisitOnboardingBalance(p OnboardingBalance)
	VisitNewLoan(p NewLoan)
	VisitRenewLoan(p RenewLoan)
	VisitInstallmentPayment(p InstallmentPayment)
	VisitExpense(p Expense)
	VisitCapitalAdded(p CapitalAdded)
	VisitAdjustment(p Adjustment)
}

// OnboardingBalance records the cash an area already held when it was
// brought into the system.
type OnboardingBalance struct {
	Amount Money `json:"amount"`
}

// LoanTerms are the fields shared by new and renewed loans.
type LoanTerms struct {
	CustomerID        CustomerID `json:"customerId"`
	CustomerName      string     `json:"customerName"`
	LoanAmount        Money      `json:"loanAmount"`
	TotalPayable      Money      `json:"totalPayable"`
	TotalInstallments int        `json:"totalInstallments"`
}

type NewLoan struct {
	LoanTerms
}

// RenewLoan replaces a customer's current loan. The previous loan is closed
// as-is; its remaining balance is not carried forward.
type RenewLoan struct {
	LoanTerms
	PreviousLoanEventID EventID `json:"previousLoanEventId"`
}

// InstallmentPayment is money collected against one loan event.
// IsOnboarding marks synthetic history entered when onboarding an existing
// loan; those payments never count as period cash flow.
type InstallmentPayment struct {
	CustomerID    CustomerID `json:"customerId"`
	CustomerName  string     `json:"customerName"`
	LoanEventID   EventID    `json:"loanEventId"`
	OnlineAmount  Money      `json:"onlineAmount"`
	OfflineAmount Money      `json:"offlineAmount"`
	TotalAmount   Money      `json:"totalAmount"`
	IsOnboarding  bool       `json:"isOnboarding,omitempty"`
}

type Expense struct {
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
}

type CapitalAdded struct {
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
}

// Adjustment corrects the cash position. Amount is signed: negative values
// are deductions.
type Adjustment struct {
	ReferenceEventID EventID `json:"referenceEventId"`
	Amount           Money   `json:"amount"`
	Reason           string  `json:"reason"`
}

func (OnboardingBalance) EventType() EventType  { return EventOnboardingBalance }
func (NewLoan) EventType() EventType            { return EventNewLoan }
func (RenewLoan) EventType() EventType          { return EventRenewLoan }
func (InstallmentPayment) EventType() EventType { return EventInstallmentPayment }
func (Expense) EventType() EventType            { return EventExpense }
func (CapitalAdded) EventType() EventType       { return EventCapitalAdded }
func (Adjustment) EventType() EventType         { return EventAdjustment }

func (p OnboardingBalance) Accept(v PayloadVisitor)  { v.VisitOnboardingBalance(p) }
func (p NewLoan) Accept(v PayloadVisitor)            { v.VisitNewLoan(p) }
func (p RenewLoan) Accept(v PayloadVisitor)          { v.VisitRenewLoan(p) }
func (p InstallmentPayment) Accept(v PayloadVisitor) { v.VisitInstallmentPayment(p) }
func (p Expense) Accept(v PayloadVisitor)            { v.VisitExpense(p) }
func (p CapitalAdded) Accept(v PayloadVisitor)       { v.VisitCapitalAdded(p) }
func (p Adjustment) Accept(v PayloadVisitor)         { v.VisitAdjustment(p) }

func (OnboardingBalance) sealed()  {}
func (NewLoan) sealed()            {}
func (RenewLoan) sealed()          {}
func (InstallmentPayment) sealed() {}
func (Expense) sealed()            {}
func (CapitalAdded) sealed()       {}
func (Adjustment) sealed()         {}

// DecodePayload decodes raw JSON into the payload variant for t.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case EventOnboardingBalance:
		var v OnboardingBalance
		err = json.Unmarshal(raw, &v)
		p = v
	case EventNewLoan:
		var v NewLoan
		err = json.Unmarshal(raw, &v)
		p = v
	case EventRenewLoan:
		var v RenewLoan
		err = json.Unmarshal(raw, &v)
		p = v
	case EventInstallmentPayment:
		var v InstallmentPayment
		err = json.Unmarshal(raw, &v)
		p = v
	case EventExpense:
		var v Expense
		err = json.Unmarshal(raw, &v)
		p = v
	case EventCapitalAdded:
		var v CapitalAdded
		err = json.Unmarshal(raw, &v)
		p = v
	case EventAdjustment:
		var v Adjustment
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// =============================================================================
// FINANCE EVENT
// =============================================================================

// FinanceEvent is one immutable entry in an area's ledger.
type FinanceEvent struct {
	EventID       EventID    `json:"eventId"`
	SchemaVersion int        `json:"schemaVersion"`
	AccountID     string     `json:"accountId"`
	AreaID        AreaID     `json:"areaId"`
	CreatedBy     string     `json:"createdBy"`
	DeviceID      string     `json:"deviceId"`
	CreatedAt     time.Time  `json:"createdAt"`
	SyncedAt      *time.Time `json:"syncedAt"`
	EventType     EventType  `json:"eventType"`
	Payload       Payload    `json:"payload"`
}

// CustomerID returns the customer the event refers to. Only loan and
// payment events carry a customer.
func (e FinanceEvent) CustomerID() (CustomerID, bool) {
	switch p := e.Payload.(type) {
	case NewLoan:
		return p.CustomerID, true
	case RenewLoan:
		return p.CustomerID, true
	case InstallmentPayment:
		return p.CustomerID, true
	}
	return "", false
}

// Loan returns the loan terms of a NEW_LOAN or RENEW_LOAN event.
func (e FinanceEvent) Loan() (LoanTerms, bool) {
	switch p := e.Payload.(type) {
	case NewLoan:
		return p.LoanTerms, true
	case RenewLoan:
		return p.LoanTerms, true
	}
	return LoanTerms{}, false
}

// Payment returns the payload of an INSTALLMENT_PAYMENT event.
func (e FinanceEvent) Payment() (InstallmentPayment, bool) {
	p, ok := e.Payload.(InstallmentPayment)
	return p, ok
}

// IsOnboardingPayment reports whether e is a synthetic backfilled payment.
func (e FinanceEvent) IsOnboardingPayment() bool {
	p, ok := e.Payment()
	return ok && p.IsOnboarding
}

type eventEnvelope struct {
	EventID       EventID         `json:"eventId"`
	SchemaVersion int             `json:"schemaVersion"`
	AccountID     string          `json:"accountId"`
	AreaID        AreaID          `json:"areaId"`
	CreatedBy     string          `json:"createdBy"`
	DeviceID      string          `json:"deviceId"`
	CreatedAt     time.Time       `json:"createdAt"`
	SyncedAt      *time.Time      `json:"syncedAt"`
	EventType     EventType       `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload according to eventType.
func (e *FinanceEvent) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload, err := DecodePayload(env.EventType, env.Payload)
	if err != nil {
		return err
	}
	*e = FinanceEvent{
		EventID:       env.EventID,
		SchemaVersion: env.SchemaVersion,
		AccountID:     env.AccountID,
		AreaID:        env.AreaID,
		CreatedBy:     env.CreatedBy,
		DeviceID:      env.DeviceID,
		CreatedAt:     env.CreatedAt,
		SyncedAt:      env.SyncedAt,
		EventType:     env.EventType,
		Payload:       payload,
	}
	return nil
}

// =============================================================================
// PAYMENT MODE
// =============================================================================

type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentOnline PaymentMode = "online"
	PaymentMixed  PaymentMode = "mixed"
)

// PaymentModeOf classifies how a payment was collected. Non-payment events
// report cash.
func PaymentModeOf(e FinanceEvent) PaymentMode {
	p, ok := e.Payment()
	if !ok {
		return PaymentCash
	}
	online, offline := p.OnlineAmount.IsPositive(), p.OfflineAmount.IsPositive()
	switch {
	case online && offline:
		return PaymentMixed
	case online:
		return PaymentOnline
	default:
		return PaymentCash
	}
}
