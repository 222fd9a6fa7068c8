package cart

import (
	"net/http"

	"github.com/crumbandco/bakeshop-backend/api/middleware"
	cartsvc "github.com/crumbandco/bakeshop-backend/internal/cart"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
)

type addItemRequest struct {
	ProductID    string  `json:"product_id" validate:"required"`
	PriceID      string  `json:"price_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	DefaultImage *string `json:"default_image,omitempty"`
	UnitPrice    int64   `json:"unit_price" validate:"min=0"`
	Currency     string  `json:"currency" validate:"required,len=3"`
	Quantity     int     `json:"quantity" validate:"omitempty,min=1"`
}

func (r addItemRequest) toItem() (cartsvc.Item, error) {
	currency, err := enums.ParseCurrency(r.Currency)
	if err != nil {
		return cartsvc.Item{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	return cartsvc.Item{
		ProductID:    r.ProductID,
		PriceID:      r.PriceID,
		Name:         r.Name,
		DefaultImage: r.DefaultImage,
		UnitPrice:    r.UnitPrice,
		Currency:     currency,
		Quantity:     r.Quantity,
	}, nil
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func cartIDFromRequest(r *http.Request) (string, error) {
	cartID, ok := middleware.CartIDFrom(r.Context())
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "X-Cart-Id header required")
	}
	return cartID, nil
}
