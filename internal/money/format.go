package money

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts in one currency for one locale.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter builds a formatter from a BCP 47 locale (e.g. "es-MX") and an
// ISO 4217 currency code (e.g. "MXN").
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return &Formatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// Format prints the locale's currency symbol followed by amount with two
// decimals and locale digit grouping.
func (f *Formatter) Format(amount float64) string {
	return f.printer.Sprintf("%v %v", currency.Symbol(f.unit), number.Decimal(amount, number.Scale(2)))
}

func (f *Formatter) Currency() string {
	return f.unit.String()
}
