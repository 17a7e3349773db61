package pricing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders integer cents as a localised currency string. It is the
// only place cents become display text.
type Formatter struct {
	unit    currency.Unit
	symbol  string
	printer *message.Printer
}

// NewFormatter validates the ISO 4217 code and BCP 47 locale.
func NewFormatter(currencyCode, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return nil, fmt.Errorf("pricing: currency %q: %w", currencyCode, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("pricing: locale %q: %w", locale, err)
	}

	p := message.NewPrinter(tag)
	// Locale-aware symbol from CLDR, e.g. "£" for GBP and "A$" for AUD
	// in English. Currencies without one print their ISO code.
	sym := p.Sprint(currency.Symbol(unit))
	if r, _ := utf8.DecodeLastRuneInString(sym); unicode.IsLetter(r) {
		sym += " "
	}
	return &Formatter{unit: unit, symbol: sym, printer: p}, nil
}

// MustFormatter is NewFormatter for known-good constants.
func MustFormatter(currencyCode, locale string) *Formatter {
	f, err := NewFormatter(currencyCode, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Currency returns the ISO code.
func (f *Formatter) Currency() string { return f.unit.String() }

// Format renders cents, e.g. 129900 → "£1,299.00" for GBP in en-GB.
func (f *Formatter) Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	amount := f.printer.Sprint(number.Decimal(float64(whole)+float64(frac)/100, number.Scale(2)))
	return sign + f.symbol + amount
}
