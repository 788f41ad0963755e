package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loanbook/ledger"
)

// =============================================================================
// DATE FILTER TESTS
// =============================================================================

func filterEvents() []ledger.FinanceEvent {
	return []ledger.FinanceEvent{
		ev("oct-01", at(1, 12), ledger.Expense{Amount: ledger.NewMoney(1)}),
		ev("oct-14-late", time.Date(2026, time.October, 14, 23, 59, 59, 0, ist), ledger.Expense{Amount: ledger.NewMoney(1)}),
		ev("oct-15-start", time.Date(2026, time.October, 15, 0, 0, 0, 0, ist), ledger.Expense{Amount: ledger.NewMoney(1)}),
		ev("oct-15-noon", at(15, 12), ledger.Expense{Amount: ledger.NewMoney(1)}),
		ev("oct-15-end", time.Date(2026, time.October, 15, 23, 59, 59, int(999*time.Millisecond), ist), ledger.Expense{Amount: ledger.NewMoney(1)}),
		ev("oct-16", time.Date(2026, time.October, 16, 0, 0, 0, 0, ist), ledger.Expense{Amount: ledger.NewMoney(1)}),
	}
}

func eventIDs(events []ledger.FinanceEvent) []ledger.EventID {
	out := []ledger.EventID{}
	for _, e := range events {
		out = append(out, e.EventID)
	}
	return out
}

func TestFilterByDate_AllIsIdentity(t *testing.T) {
	events := filterEvents()

	got := ledger.FilterByDate(events, ledger.AllTime, now)

	assert.Equal(t, events, got)
}

func TestFilterByDate_Today(t *testing.T) {
	// GIVEN: Events around today's boundaries
	// WHEN: Filtering today
	// THEN: Every kept event is on today's calendar date, boundaries included

	got := ledger.FilterByDate(filterEvents(), ledger.DateFilter{Mode: ledger.FilterToday}, now)

	assert.Equal(t, []ledger.EventID{"oct-15-start", "oct-15-noon", "oct-15-end"}, eventIDs(got))
	for _, e := range got {
		assert.True(t, ledger.SameDay(e.CreatedAt, now, now.Location()))
	}
}

func TestFilterByDate_Yesterday(t *testing.T) {
	got := ledger.FilterByDate(filterEvents(), ledger.DateFilter{Mode: ledger.FilterYesterday}, now)

	assert.Equal(t, []ledger.EventID{"oct-14-late"}, eventIDs(got))
}

func TestFilterByDate_Custom(t *testing.T) {
	f := ledger.DateFilter{Mode: ledger.FilterCustom, CustomDate: at(1, 0)}

	got := ledger.FilterByDate(filterEvents(), f, now)

	assert.Equal(t, []ledger.EventID{"oct-01"}, eventIDs(got))
}

func TestFilterByDate_Range(t *testing.T) {
	f := ledger.DateFilter{Mode: ledger.FilterRange, StartDate: at(14, 0), EndDate: at(15, 0)}

	got := ledger.FilterByDate(filterEvents(), f, now)

	assert.Equal(t, []ledger.EventID{"oct-14-late", "oct-15-start", "oct-15-noon", "oct-15-end"}, eventIDs(got))
}

func TestFilterByDate_IncompleteFiltersDoNotFilter(t *testing.T) {
	events := filterEvents()

	for name, f := range map[string]ledger.DateFilter{
		"custom without date": {Mode: ledger.FilterCustom},
		"range without start": {Mode: ledger.FilterRange, EndDate: at(15, 0)},
		"range without end":   {Mode: ledger.FilterRange, StartDate: at(1, 0)},
		"unknown mode":        {Mode: "fortnight"},
		"empty mode":          {},
	} {
		_, ok := f.Window(now)
		assert.False(t, ok, name)
		assert.Len(t, ledger.FilterByDate(events, f, now), len(events), name)
	}
}

func TestDateFilter_WindowUsesNowLocation(t *testing.T) {
	// GIVEN: now expressed in IST
	// WHEN: Computing today's window
	// THEN: Boundaries are IST midnight and 23:59:59.999

	w, ok := ledger.DateFilter{Mode: ledger.FilterToday}.Window(now)
	require.True(t, ok)

	assert.True(t, w.Start.Equal(time.Date(2026, time.October, 15, 0, 0, 0, 0, ist)))
	assert.True(t, w.End.Equal(time.Date(2026, time.October, 15, 23, 59, 59, int(999*time.Millisecond), ist)))
	assert.True(t, w.Contains(now))
}

func TestParseDateFilter(t *testing.T) {
	f, err := ledger.ParseDateFilter("", "", "", "", ist)
	require.NoError(t, err)
	assert.Equal(t, ledger.FilterAll, f.Mode)

	f, err = ledger.ParseDateFilter("Range", "", "2026-10-01", "2026-10-15", ist)
	require.NoError(t, err)
	assert.Equal(t, ledger.FilterRange, f.Mode)
	assert.True(t, f.StartDate.Equal(time.Date(2026, time.October, 1, 0, 0, 0, 0, ist)))
	assert.True(t, f.EndDate.Equal(time.Date(2026, time.October, 15, 0, 0, 0, 0, ist)))

	f, err = ledger.ParseDateFilter("custom", "2026-10-01", "", "", ist)
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventID{"oct-01"}, eventIDs(ledger.FilterByDate(filterEvents(), f, now)))

	_, err = ledger.ParseDateFilter("weekly", "", "", "", ist)
	assert.ErrorIs(t, err, ledger.ErrInvalidDateFilter)
	assert.True(t, ledger.IsClientError(err))

	_, err = ledger.ParseDateFilter("custom", "15/10/2026", "", "", ist)
	assert.ErrorIs(t, err, ledger.ErrInvalidDateFilter)
}
