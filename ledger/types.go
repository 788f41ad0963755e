/*
Package ledger provides the core bookkeeping engine for the loan book.

PURPOSE:
  This package contains the event model and the pure computations that turn
  an append-only log of financial events into the views a lender needs:
  the cash dashboard, the state of a customer's current loan, and the
  history of every loan a customer has taken.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amounts (never float) for every monetary field
  - Area / Village / Customer: the registry entities events point at
  - Typed identifiers so an area id cannot be passed where an event id goes

DESIGN PRINCIPLES:
  1. Immutability: events are never modified, corrections are new events
  2. Precision: all money uses decimal.Decimal, rounding only for display
  3. Purity: folds take events in and return values out, no I/O
  4. Recompute on read: no aggregate is stored, every view is re-derived

USAGE:
  events, _ := led.ListByArea(ctx, areaID)
  dash := ledger.CalculateDashboard(events, ledger.DateFilter{Mode: ledger.FilterToday}, time.Now())

SEE ALSO:
  - event.go: FinanceEvent and the payload variants
  - dashboard.go: Ledger fold engine
  - summary.go: Loan summary engine
  - history.go: Loan history engine
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is a decimal amount in the ledger's single currency.
type Money = decimal.Decimal

// NewMoney builds a Money value from an integer number of currency units.
func NewMoney(units int64) Money {
	return decimal.NewFromInt(units)
}

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func maxZero(d Money) Money {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AreaID string
type VillageID string
type CustomerID string
type EventID string

// =============================================================================
// REGISTRY ENTITIES
// =============================================================================

// Area is the top-level partition of the ledger. Every event, village and
// customer belongs to exactly one area.
type Area struct {
	ID           AreaID    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	IsOnboarding bool      `json:"isOnboarding"`
}

// Village groups customers inside an area and owns the serial counter.
// NextSerialNumber only ever increases.
type Village struct {
	ID               VillageID `json:"id"`
	AreaID           AreaID    `json:"areaId"`
	Name             string    `json:"name"`
	NextSerialNumber int       `json:"nextSerialNumber"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Customer is a borrower. SerialNumber is assigned once from the village
// counter and never changes.
type Customer struct {
	ID           CustomerID `json:"id"`
	AreaID       AreaID     `json:"areaId"`
	VillageID    VillageID  `json:"villageId"`
	VillageName  string     `json:"villageName"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	SerialNumber int        `json:"serialNumber"`
	CreatedAt    time.Time  `json:"createdAt"`
}
