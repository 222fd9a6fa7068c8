package cart

import (
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	"github.com/crumbandco/bakeshop-backend/pkg/money"
)

// Item is one line of a shopper's cart. Carts are stored as JSON
// arrays of these, unique by ProductID.
type Item struct {
	ProductID      string         `json:"product_id"`
	PriceID        string         `json:"price_id"`
	Name           string         `json:"name"`
	DefaultImage   *string        `json:"default_image,omitempty"`
	UnitPrice      int64          `json:"unit_price"`
	Currency       enums.Currency `json:"currency"`
	Quantity       int            `json:"quantity"`
	StockAvailable bool           `json:"stock_available"`
}

// Subtotal sums unit_price * quantity over all items in minor units.
// No conversion happens; carts are assumed single-currency.
func Subtotal(items []Item) int64 {
	lines := make([]money.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, money.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return money.Subtotal(lines)
}

// DisplayCurrency returns the currency used to render the cart total.
// It is taken from the first item; an empty cart renders in GBP.
func DisplayCurrency(items []Item) enums.Currency {
	if len(items) == 0 {
		return enums.CurrencyGBP
	}
	return items[0].Currency
}

// FormatSubtotal renders the cart subtotal as a symbol-prefixed string.
func FormatSubtotal(items []Item) string {
	return money.Format(Subtotal(items), DisplayCurrency(items))
}
