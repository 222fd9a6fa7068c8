package cart

import (
	cartsvc "github.com/crumbandco/bakeshop-backend/internal/cart"
)

type cartView struct {
	CartID          string         `json:"cart_id"`
	Items           []cartsvc.Item `json:"items"`
	Subtotal        int64          `json:"subtotal"`
	SubtotalDisplay string         `json:"subtotal_display"`
	Currency        string         `json:"currency"`
}

func newCartView(cartID string, items []cartsvc.Item) cartView {
	if items == nil {
		items = []cartsvc.Item{}
	}
	return cartView{
		CartID:          cartID,
		Items:           items,
		Subtotal:        cartsvc.Subtotal(items),
		SubtotalDisplay: cartsvc.FormatSubtotal(items),
		Currency:        string(cartsvc.DisplayCurrency(items)),
	}
}
