package money

import (
	"github.com/shopspring/decimal"

	"github.com/crumbandco/bakeshop-backend/pkg/enums"
)

// Line is the minimal shape the subtotal computation needs from a
// cart line item.
type Line struct {
	UnitPrice int64
	Quantity  int
}

var symbols = map[enums.Currency]string{
	enums.CurrencyGBP: "£",
	enums.CurrencyUSD: "$",
	enums.CurrencyEUR: "€",
}

var minorFactor = decimal.NewFromInt(100)

// Subtotal sums unit_price * quantity across lines, in minor units.
// No currency conversion happens here; callers are expected to hand
// in a single-currency set of lines.
func Subtotal(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// Format renders minor units as a symbol-prefixed amount with exactly
// two decimal places, e.g. Format(1250, "GBP") == "£12.50".
func Format(minorUnits int64, currency enums.Currency) string {
	major := decimal.NewFromInt(minorUnits).Div(minorFactor)
	return Symbol(currency) + major.StringFixed(2)
}

// Symbol returns the customary display symbol for a supported
// currency, or the ISO code with a trailing space otherwise.
func Symbol(currency enums.Currency) string {
	if sym, ok := symbols[currency]; ok {
		return sym
	}
	return currency.String() + " "
}
