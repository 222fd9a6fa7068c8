package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	"github.com/crumbandco/bakeshop-backend/pkg/money"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID           uuid.UUID  `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	DefaultImage *string    `json:"default_image,omitempty"`
	Tags         []string   `json:"tags"`
	Allergens    []string   `json:"allergens"`
	StockQty     int        `json:"stock_qty"`
	InStock      bool       `json:"in_stock"`
	IsActive     bool       `json:"is_active"`
	Prices       []PriceDTO `json:"prices"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PriceDTO is one sellable plan on a product.
type PriceDTO struct {
	ID              uuid.UUID `json:"id"`
	Nickname        *string   `json:"nickname,omitempty"`
	Type            string    `json:"type"`
	UnitAmount      int64     `json:"unit_amount"`
	Currency        string    `json:"currency"`
	Display         string    `json:"display"`
	CatalogObjectID *string   `json:"catalog_object_id,omitempty"`
	IsActive        bool      `json:"is_active"`
}

func toProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:           product.ID,
		Slug:         product.Slug,
		Name:         product.Name,
		Description:  product.Description,
		DefaultImage: product.DefaultImage,
		Tags:         append([]string{}, product.Tags...),
		Allergens:    append([]string{}, product.Allergens...),
		StockQty:     product.StockQty,
		InStock:      product.StockQty > 0,
		IsActive:     product.IsActive,
		Prices:       make([]PriceDTO, 0, len(product.Prices)),
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
	for i := range product.Prices {
		dto.Prices = append(dto.Prices, toPriceDTO(&product.Prices[i]))
	}
	return dto
}

func toPriceDTO(price *models.Price) PriceDTO {
	return PriceDTO{
		ID:              price.ID,
		Nickname:        price.Nickname,
		Type:            price.Type.String(),
		UnitAmount:      price.UnitAmount,
		Currency:        price.Currency.String(),
		Display:         money.Format(price.UnitAmount, price.Currency),
		CatalogObjectID: price.CatalogObjectID,
		IsActive:        price.IsActive,
	}
}
