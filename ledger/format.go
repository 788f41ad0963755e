package ledger

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// =============================================================================
// DISPLAY FORMATTING - the only place money is rounded
// =============================================================================

const (
	DefaultCurrencySymbol = "₹"
	DefaultLocale         = "en-IN"
)

// Formatter renders amounts for display: rounded to a whole unit, grouped
// with the locale's thousands separators, prefixed with the symbol.
type Formatter struct {
	Symbol  string
	printer *message.Printer
}

// NewFormatter builds a Formatter. An unparseable locale falls back to
// DefaultLocale.
func NewFormatter(symbol, locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return &Formatter{Symbol: symbol, printer: message.NewPrinter(tag)}
}

// DefaultFormatter uses the rupee symbol and Indian English grouping.
func DefaultFormatter() *Formatter {
	return NewFormatter(DefaultCurrencySymbol, DefaultLocale)
}

// Currency formats d as e.g. "₹1,235". Halves round away from zero.
// Negative amounts render as "-₹200".
func (f *Formatter) Currency(d Money) string {
	units := d.Round(0).IntPart()
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return sign + f.Symbol + f.printer.Sprintf("%d", units)
}

// FormatDate renders "15 Oct 2026".
func FormatDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

// FormatDateTime renders "15 Oct 2026, 3:04 PM".
func FormatDateTime(t time.Time) string {
	return t.Format("2 Jan 2006, 3:04 PM")
}
