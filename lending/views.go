package lending

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/warp/loanbook/ledger"
)

// =============================================================================
// AREA VIEWS
// =============================================================================

// Events returns the selected area's events inside the filter window,
// newest first.
func (s *Service) Events(ctx context.Context, f ledger.DateFilter) ([]ledger.FinanceEvent, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.ledger.ListByArea(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return ledger.FilterByDate(events, f, s.Now()), nil
}

// Dashboard folds the selected area's events for the filter window.
func (s *Service) Dashboard(ctx context.Context, f ledger.DateFilter) (ledger.DashboardData, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.DashboardData{}, err
	}
	events, err := s.ledger.ListByArea(ctx, areaID)
	if err != nil {
		return ledger.DashboardData{}, fmt.Errorf("load events: %w", err)
	}
	return ledger.CalculateDashboard(events, f, s.Now()), nil
}

// =============================================================================
// CUSTOMER VIEWS
// =============================================================================

// CustomerSummaries returns the current loan state of every customer in the
// selected area, in collection order: unpaid before fully paid, then not
// yet paid today before paid today, then by serial number.
func (s *Service) CustomerSummaries(ctx context.Context) ([]ledger.LoanSummary, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.store.ListCustomers(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	events, err := s.ledger.ListByArea(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	now := s.Now()
	summaries := make([]ledger.LoanSummary, 0, len(customers))
	for _, c := range customers {
		summaries = append(summaries, ledger.CustomerLoanSummary(c, events, now))
	}
	sortForCollection(summaries)
	return summaries, nil
}

func sortForCollection(summaries []ledger.LoanSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.IsFullyPaid != b.IsFullyPaid {
			return !a.IsFullyPaid
		}
		if a.PaidToday != b.PaidToday {
			return !a.PaidToday
		}
		return a.Customer.SerialNumber < b.Customer.SerialNumber
	})
}

// CustomerSummary returns one customer's current loan state.
func (s *Service) CustomerSummary(ctx context.Context, id ledger.CustomerID) (ledger.LoanSummary, error) {
	c, events, err := s.customerWithEvents(ctx, id)
	if err != nil {
		return ledger.LoanSummary{}, err
	}
	return ledger.CustomerLoanSummary(c, events, s.Now()), nil
}

// CustomerSections returns the customer's loan history, most recent first.
func (s *Service) CustomerSections(ctx context.Context, id ledger.CustomerID) ([]ledger.LoanSection, error) {
	c, events, err := s.customerWithEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	return ledger.CustomerLoanSections(c, events), nil
}

// CustomerEvents returns the customer's loan and payment events, newest first.
func (s *Service) CustomerEvents(ctx context.Context, id ledger.CustomerID) ([]ledger.FinanceEvent, error) {
	_, events, err := s.customerWithEvents(ctx, id)
	return events, err
}

func (s *Service) customerWithEvents(ctx context.Context, id ledger.CustomerID) (ledger.Customer, []ledger.FinanceEvent, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return ledger.Customer{}, nil, err
	}
	events, err := s.ledger.ListByCustomer(ctx, id)
	if err != nil {
		return ledger.Customer{}, nil, fmt.Errorf("load customer events: %w", err)
	}
	return c, events, nil
}

// =============================================================================
// SEARCH + GROUPING
// =============================================================================

// SearchCustomers filters the collection-ordered summaries. A numeric query
// matches a serial number exactly; any query also matches a case-insensitive
// substring of name, phone or village name. An empty query matches all.
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]ledger.LoanSummary, error) {
	summaries, err := s.CustomerSummaries(ctx)
	if err != nil {
		return nil, err
	}
	return filterSummaries(summaries, query), nil
}

func filterSummaries(summaries []ledger.LoanSummary, query string) []ledger.LoanSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return summaries
	}
	serial, serialErr := strconv.Atoi(q)

	out := []ledger.LoanSummary{}
	for _, sum := range summaries {
		c := sum.Customer
		switch {
		case serialErr == nil && c.SerialNumber == serial,
			strings.Contains(strings.ToLower(c.Name), q),
			strings.Contains(strings.ToLower(c.Phone), q),
			strings.Contains(strings.ToLower(c.VillageName), q):
			out = append(out, sum)
		}
	}
	return out
}

// OtherVillage labels the group of customers whose village was deleted.
const OtherVillage = "Other"

// VillageGroup is one village's customers in collection order.
type VillageGroup struct {
	VillageID   ledger.VillageID     `json:"villageId,omitempty"`
	VillageName string               `json:"villageName"`
	Customers   []ledger.LoanSummary `json:"customers"`
}

// VillageGroups groups matching summaries by village, in village creation
// order. Customers of deleted villages go into a trailing "Other" group.
// Villages without matching customers are left out.
func (s *Service) VillageGroups(ctx context.Context, query string) ([]VillageGroup, error) {
	summaries, err := s.SearchCustomers(ctx, query)
	if err != nil {
		return nil, err
	}
	villages, err := s.ListVillages(ctx)
	if err != nil {
		return nil, err
	}
	return groupByVillage(villages, summaries), nil
}

func groupByVillage(villages []ledger.Village, summaries []ledger.LoanSummary) []VillageGroup {
	index := make(map[ledger.VillageID]int, len(villages))
	groups := make([]VillageGroup, len(villages))
	for i, v := range villages {
		index[v.ID] = i
		groups[i] = VillageGroup{VillageID: v.ID, VillageName: v.Name}
	}

	other := VillageGroup{VillageName: OtherVillage}
	for _, sum := range summaries {
		if i, ok := index[sum.Customer.VillageID]; ok {
			groups[i].Customers = append(groups[i].Customers, sum)
			continue
		}
		other.Customers = append(other.Customers, sum)
	}

	out := []VillageGroup{}
	for _, g := range groups {
		if len(g.Customers) > 0 {
			out = append(out, g)
		}
	}
	if len(other.Customers) > 0 {
		out = append(out, other)
	}
	return out
}
