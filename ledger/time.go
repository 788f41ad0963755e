package ledger

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Inclusive time window
// =============================================================================

// Period is an inclusive window [Start, End].
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339Nano) + ", " + p.End.Format(time.RFC3339Nano) + "]"
}

// StartOfDay returns 00:00:00.000 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// =============================================================================
// DATE FILTER
// =============================================================================

type FilterMode string

const (
	FilterToday     FilterMode = "today"
	FilterYesterday FilterMode = "yesterday"
	FilterCustom    FilterMode = "custom"
	FilterRange     FilterMode = "range"
	FilterAll       FilterMode = "all"
)

// DateFilter selects events by creation day. Zero dates mean "not set".
type DateFilter struct {
	Mode       FilterMode
	CustomDate time.Time
	StartDate  time.Time
	EndDate    time.Time
}

// AllTime is the filter that keeps every event.
var AllTime = DateFilter{Mode: FilterAll}

// Window returns the inclusive day-boundary window for the filter, computed
// in now's location. ok is false when nothing should be filtered: mode all,
// custom without a date, range missing a bound, or an unknown mode.
func (f DateFilter) Window(now time.Time) (Period, bool) {
	loc := now.Location()
	switch f.Mode {
	case FilterToday:
		return dayWindow(now, now), true
	case FilterYesterday:
		y := now.AddDate(0, 0, -1)
		return dayWindow(y, y), true
	case FilterCustom:
		if f.CustomDate.IsZero() {
			return Period{}, false
		}
		d := f.CustomDate.In(loc)
		return dayWindow(d, d), true
	case FilterRange:
		if f.StartDate.IsZero() || f.EndDate.IsZero() {
			return Period{}, false
		}
		return dayWindow(f.StartDate.In(loc), f.EndDate.In(loc)), true
	default:
		return Period{}, false
	}
}

func dayWindow(from, to time.Time) Period {
	return Period{Start: StartOfDay(from), End: EndOfDay(to)}
}

// FilterByDate keeps events whose CreatedAt falls inside the filter window.
// When the filter has no window the input slice is returned as-is.
func FilterByDate(events []FinanceEvent, f DateFilter, now time.Time) []FinanceEvent {
	window, ok := f.Window(now)
	if !ok {
		return events
	}
	var out []FinanceEvent
	for _, e := range events {
		if window.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	return out
}

// DateLayout is the wire format for calendar dates in filters.
const DateLayout = "2006-01-02"

// ParseDateFilter builds a filter from query-string values. Dates are
// YYYY-MM-DD interpreted in loc. An empty mode means all.
func ParseDateFilter(mode, date, from, to string, loc *time.Location) (DateFilter, error) {
	f := DateFilter{Mode: FilterMode(strings.ToLower(strings.TrimSpace(mode)))}
	if f.Mode == "" {
		f.Mode = FilterAll
	}
	switch f.Mode {
	case FilterToday, FilterYesterday, FilterAll, FilterCustom, FilterRange:
	default:
		return DateFilter{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidDateFilter, mode)
	}

	var err error
	if f.CustomDate, err = parseDay(date, loc); err != nil {
		return DateFilter{}, err
	}
	if f.StartDate, err = parseDay(from, loc); err != nil {
		return DateFilter{}, err
	}
	if f.EndDate, err = parseDay(to, loc); err != nil {
		return DateFilter{}, err
	}
	return f, nil
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateFilter, s)
	}
	return t, nil
}
