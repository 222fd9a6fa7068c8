package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crumbandco/bakeshop-backend/api/responses"
	"github.com/crumbandco/bakeshop-backend/api/validators"
	productsvc "github.com/crumbandco/bakeshop-backend/internal/products"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

// ListProducts serves the public catalogue of active products.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": items})
	}
}

// GetProductBySlug serves a single active product with its prices.
func GetProductBySlug(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		slug := chi.URLParam(r, "slug")
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug required"))
			return
		}

		product, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createPriceRequest struct {
	Nickname        *string `json:"nickname,omitempty"`
	Type            string  `json:"type" validate:"required"`
	UnitAmount      int64   `json:"unit_amount" validate:"required,min=0"`
	Currency        string  `json:"currency" validate:"required,len=3"`
	CatalogObjectID *string `json:"catalog_object_id,omitempty"`
}

type createProductRequest struct {
	Slug         string               `json:"slug" validate:"required"`
	Name         string               `json:"name" validate:"required"`
	Description  *string              `json:"description,omitempty"`
	DefaultImage *string              `json:"default_image,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	Allergens    []string             `json:"allergens,omitempty"`
	StockQty     int                  `json:"stock_qty" validate:"min=0"`
	IsActive     *bool                `json:"is_active,omitempty"`
	Prices       []createPriceRequest `json:"prices,omitempty" validate:"dive"`
}

func (r createProductRequest) toCreateInput() productsvc.CreateProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	prices := make([]productsvc.PriceInput, 0, len(r.Prices))
	for _, p := range r.Prices {
		prices = append(prices, productsvc.PriceInput{
			Nickname:        p.Nickname,
			Type:            p.Type,
			UnitAmount:      p.UnitAmount,
			Currency:        p.Currency,
			CatalogObjectID: p.CatalogObjectID,
		})
	}

	return productsvc.CreateProductInput{
		Slug:         r.Slug,
		Name:         r.Name,
		Description:  r.Description,
		DefaultImage: r.DefaultImage,
		Tags:         r.Tags,
		Allergens:    r.Allergens,
		StockQty:     r.StockQty,
		IsActive:     active,
		Prices:       prices,
	}
}

// AdminCreateProduct handles product creation for staff.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Slug         *string   `json:"slug,omitempty"`
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	DefaultImage *string   `json:"default_image,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Allergens    *[]string `json:"allergens,omitempty"`
	StockQty     *int      `json:"stock_qty,omitempty" validate:"omitempty,min=0"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// AdminUpdateProduct applies partial updates to a product row.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, productsvc.UpdateProductInput{
			Slug:         payload.Slug,
			Name:         payload.Name,
			Description:  payload.Description,
			DefaultImage: payload.DefaultImage,
			Tags:         payload.Tags,
			Allergens:    payload.Allergens,
			StockQty:     payload.StockQty,
			IsActive:     payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct soft deletes a product row.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminAddPrice attaches a new sellable price to a product.
func AdminAddPrice(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.AddPrice(r.Context(), productID, productsvc.PriceInput{
			Nickname:        payload.Nickname,
			Type:            payload.Type,
			UnitAmount:      payload.UnitAmount,
			Currency:        payload.Currency,
			CatalogObjectID: payload.CatalogObjectID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, price)
	}
}

type updatePriceRequest struct {
	Nickname        *string `json:"nickname,omitempty"`
	UnitAmount      *int64  `json:"unit_amount,omitempty" validate:"omitempty,min=0"`
	CatalogObjectID *string `json:"catalog_object_id,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// AdminUpdatePrice applies partial updates to a price row.
func AdminUpdatePrice(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		priceID, err := parseIDParam(r, "priceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.UpdatePrice(r.Context(), priceID, productsvc.UpdatePriceInput{
			Nickname:        payload.Nickname,
			UnitAmount:      payload.UnitAmount,
			CatalogObjectID: payload.CatalogObjectID,
			IsActive:        payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, price)
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
