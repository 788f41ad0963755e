/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with realistic data through the public Service API,
  so every demo exercises the same validation and ledger paths as real use.

AVAILABLE SCENARIOS:
  new-area:       One area with villages and customers, no money yet
  onboarded-area: Existing business brought in with opening cash and a
                  loan that already had payments
  collection-day: A working area: loans, a renewal, mixed payments,
                  expenses, capital and a correction

HOW SCENARIOS WORK:
  1. Delete every area (cascades to villages, customers, events)
  2. Create the scenario's areas, villages and customers
  3. Record its financial events
  4. Leave the scenario's main area selected

NOTE:
  Loading a scenario wipes all data. Only use in development or demos.
*/
package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/loanbook/ledger"
	"go.uber.org/zap"
)

// ErrUnknownScenario is returned for scenario ids not in Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario describes a loadable demo dataset.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Scenarios = []Scenario{
	{
		ID:          "new-area",
		Name:        "New Area",
		Description: "Two villages with registered customers and no loans yet",
	},
	{
		ID:          "onboarded-area",
		Name:        "Onboarded Area",
		Description: "Existing business with opening cash and a loan already part repaid",
	},
	{
		ID:          "collection-day",
		Name:        "Collection Day",
		Description: "Loans, a renewal, cash and online payments, expenses, capital and a correction",
	},
}

// LoadScenario replaces all data with the named scenario.
func (s *Service) LoadScenario(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "new-area":
		load = s.loadNewArea
	case "onboarded-area":
		load = s.loadOnboardedArea
	case "collection-day":
		load = s.loadCollectionDay
	default:
		return ledger.Invalid("scenarioId", ErrUnknownScenario)
	}

	if err := s.reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := load(ctx); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	s.log.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

func (s *Service) reset(ctx context.Context) error {
	areas, err := s.store.ListAreas(ctx)
	if err != nil {
		return err
	}
	for _, a := range areas {
		if err := s.DeleteArea(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (s *Service) loadNewArea(ctx context.Context) error {
	_, err := s.seedArea(ctx, "North Block", map[string][]string{
		"Rampur":    {"Asha Devi", "Ravi Kumar", "Sunita"},
		"Kishanpur": {"Mohan Lal", "Geeta"},
	}, []string{"Rampur", "Kishanpur"})
	return err
}

func (s *Service) loadOnboardedArea(ctx context.Context) error {
	area, err := s.CreateArea(ctx, CreateAreaInput{
		Name:           "River Side",
		IsOnboarding:   true,
		OpeningBalance: ledger.NewMoney(50000),
	})
	if err != nil {
		return err
	}
	if _, err := s.SelectArea(ctx, area.ID); err != nil {
		return err
	}

	v, err := s.CreateVillage(ctx, "Ghatpur")
	if err != nil {
		return err
	}
	lakshmi, err := s.CreateCustomer(ctx, CreateCustomerInput{VillageID: v.ID, Name: "Lakshmi", Phone: "9800000001"})
	if err != nil {
		return err
	}
	raju, err := s.CreateCustomer(ctx, CreateCustomerInput{VillageID: v.ID, Name: "Raju", Phone: "9800000002"})
	if err != nil {
		return err
	}

	// 10,000 lent for 12,000 over 12 weeks, 4 weeks already collected
	if _, err := s.CreateNewLoan(ctx, NewLoanInput{
		CustomerID:           lakshmi.ID,
		LoanAmount:           ledger.NewMoney(10000),
		TotalPayable:         ledger.NewMoney(12000),
		TotalInstallments:    12,
		BackfillInstallments: 4,
		BackfillAmount:       ledger.NewMoney(4000),
	}); err != nil {
		return err
	}

	loans, err := s.CreateNewLoan(ctx, NewLoanInput{
		CustomerID:        raju.ID,
		LoanAmount:        ledger.NewMoney(5000),
		TotalPayable:      ledger.NewMoney(6000),
		TotalInstallments: 10,
	})
	if err != nil {
		return err
	}
	_, err = s.MakePayment(ctx, PaymentInput{
		CustomerID:    raju.ID,
		LoanEventID:   loans[0].EventID,
		OfflineAmount: ledger.NewMoney(600),
	})
	return err
}

func (s *Service) loadCollectionDay(ctx context.Context) error {
	customers, err := s.seedArea(ctx, "Market Road", map[string][]string{
		"Sonapur":  {"Kamala", "Farid", "Meena"},
		"Bhimgarh": {"Prakash", "Rekha"},
	}, []string{"Sonapur", "Bhimgarh"})
	if err != nil {
		return err
	}

	capital, err := s.AddCapital(ctx, ledger.NewMoney(100000), "Owner investment")
	if err != nil {
		return err
	}

	loanFor := make(map[string]ledger.EventID)
	for i, name := range []string{"Kamala", "Farid", "Meena", "Prakash", "Rekha"} {
		amount := int64(5000 + i*1000)
		events, err := s.CreateNewLoan(ctx, NewLoanInput{
			CustomerID:        customers[name].ID,
			LoanAmount:        ledger.NewMoney(amount),
			TotalPayable:      ledger.NewMoney(amount * 12 / 10),
			TotalInstallments: 12,
		})
		if err != nil {
			return err
		}
		loanFor[name] = events[0].EventID
	}

	payments := []PaymentInput{
		{CustomerID: customers["Kamala"].ID, LoanEventID: loanFor["Kamala"], OfflineAmount: ledger.NewMoney(500)},
		{CustomerID: customers["Farid"].ID, LoanEventID: loanFor["Farid"], OnlineAmount: ledger.NewMoney(600)},
		{CustomerID: customers["Meena"].ID, LoanEventID: loanFor["Meena"], OnlineAmount: ledger.NewMoney(300), OfflineAmount: ledger.NewMoney(400)},
		{CustomerID: customers["Prakash"].ID, LoanEventID: loanFor["Prakash"], OfflineAmount: ledger.NewMoney(9600)},
	}
	for _, p := range payments {
		if _, err := s.MakePayment(ctx, p); err != nil {
			return err
		}
	}

	// Prakash repaid in full and takes a bigger loan
	if _, err := s.RenewLoan(ctx, RenewLoanInput{
		CustomerID:          customers["Prakash"].ID,
		PreviousLoanEventID: loanFor["Prakash"],
		LoanAmount:          ledger.NewMoney(10000),
		TotalPayable:        ledger.NewMoney(12000),
		TotalInstallments:   12,
	}); err != nil {
		return err
	}

	if _, err := s.AddExpense(ctx, ledger.NewMoney(250), "Fuel"); err != nil {
		return err
	}
	_, err = s.CreateAdjustment(ctx, capital.EventID, ledger.NewMoney(-1000), "Capital entered 1,000 too high")
	return err
}

// seedArea creates an area, selects it, and registers customers per
// village in the given village order. Customers are returned by name.
func (s *Service) seedArea(ctx context.Context, name string, people map[string][]string, order []string) (map[string]ledger.Customer, error) {
	area, err := s.CreateArea(ctx, CreateAreaInput{Name: name})
	if err != nil {
		return nil, err
	}
	if _, err := s.SelectArea(ctx, area.ID); err != nil {
		return nil, err
	}

	customers := make(map[string]ledger.Customer)
	for _, villageName := range order {
		v, err := s.CreateVillage(ctx, villageName)
		if err != nil {
			return nil, err
		}
		for _, person := range people[villageName] {
			c, err := s.CreateCustomer(ctx, CreateCustomerInput{VillageID: v.ID, Name: person})
			if err != nil {
				return nil, err
			}
			customers[person] = c
		}
	}
	return customers, nil
}
