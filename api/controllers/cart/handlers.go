package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crumbandco/bakeshop-backend/api/responses"
	"github.com/crumbandco/bakeshop-backend/api/validators"
	cartsvc "github.com/crumbandco/bakeshop-backend/internal/cart"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

type stockChecker interface {
	InStock(ctx context.Context, productID uuid.UUID) (bool, error)
}

// Fetch returns the caller's cart with its computed subtotal.
func Fetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Get(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(cartID, items))
	}
}

// AddItem adds a product line or bumps its quantity when already present.
// The line's stock flag is snapshotted from the catalog at add time.
func AddItem(svc cartsvc.Service, stock stockChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := payload.toItem()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item.StockAvailable = stockSnapshot(r.Context(), stock, logg, item.ProductID)

		items, err := svc.Add(r.Context(), cartID, item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(cartID, items))
	}
}

// stockSnapshot reads the catalog's current stock flag for a product.
// The flag is advisory, so a failed lookup marks the line unavailable
// instead of failing the add.
func stockSnapshot(ctx context.Context, stock stockChecker, logg *logger.Logger, productID string) bool {
	if stock == nil {
		return false
	}
	id, err := uuid.Parse(productID)
	if err != nil {
		return false
	}
	inStock, err := stock.InStock(ctx, id)
	if err != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{"product_id": productID}), "stock lookup failed")
		return false
	}
	return inStock
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func SetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.SetItemQuantity(r.Context(), cartID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(cartID, items))
	}
}

// RemoveItem drops a product line; removing an absent line is a no-op.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		items, err := svc.Remove(r.Context(), cartID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(cartID, items))
	}
}
