package square

import (
	"strconv"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// OrderLine is a single purchasable row on a hosted checkout page.
type OrderLine struct {
	Name            string
	Quantity        int
	UnitAmount      int64
	Currency        string
	CatalogObjectID string
	Note            string
}

// PaymentLinkCreateParams contains the fields required to build a Square payment link.
type PaymentLinkCreateParams struct {
	Lines          []OrderLine
	ReferenceID    string
	RedirectURL    string
	Description    string
	IdempotencyKey string
}

func (p PaymentLinkCreateParams) toSquareRequest(locationID, idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	order := &sq.Order{
		LocationID: locationID,
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		order.ReferenceID = ptrString(trimmed)
	}
	for _, line := range p.Lines {
		order.LineItems = append(order.LineItems, line.toSquareLineItem())
	}

	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		req.Description = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.RedirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{
			RedirectURL: ptrString(trimmed),
		}
	}
	return req
}

func (l OrderLine) toSquareLineItem() *sq.OrderLineItem {
	item := &sq.OrderLineItem{
		Quantity: strconv.Itoa(l.Quantity),
	}
	if trimmed := strings.TrimSpace(l.Name); trimmed != "" {
		item.Name = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(l.CatalogObjectID); trimmed != "" {
		item.CatalogObjectID = ptrString(trimmed)
	}
	if l.UnitAmount > 0 {
		item.BasePriceMoney = moneyPtr(l.UnitAmount, l.Currency)
	}
	if trimmed := strings.TrimSpace(l.Note); trimmed != "" {
		item.Note = ptrString(trimmed)
	}
	return item
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "GBP"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
