package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/crumbandco/bakeshop-backend/api/middleware"
	"github.com/crumbandco/bakeshop-backend/api/responses"
	"github.com/crumbandco/bakeshop-backend/api/validators"
	checkoutsvc "github.com/crumbandco/bakeshop-backend/internal/checkout"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

// The payment endpoints keep a fixed wire contract consumed by the
// storefront: success and failure bodies carry an explicit "success"
// flag instead of the standard envelope.

const maxCheckoutFormMemory = 1 << 20

type checkProductsRequest struct {
	Items []checkoutsvc.CheckItem `json:"items" validate:"required,min=1"`
}

type paymentResult struct {
	Success bool `json:"success"`
	Message any  `json:"message,omitempty"`
}

// CheckProducts revalidates a cart's lines against the live catalogue.
func CheckProducts(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkProductsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, _ := middleware.CartIDFrom(r.Context())
		failures, err := svc.CheckProducts(r.Context(), cartID, payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !failures.Empty() {
			responses.WriteJSON(w, http.StatusOK, paymentResult{Success: false, Message: failures})
			return
		}

		responses.WriteJSON(w, http.StatusOK, paymentResult{Success: true})
	}
}

// Checkout validates the submitted lines, creates a Square payment link
// and redirects the shopper to it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		items, err := parseCheckoutForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, _ := middleware.CartIDFrom(r.Context())
		link, failures, err := svc.Checkout(r.Context(), cartID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !failures.Empty() {
			responses.WriteJSON(w, http.StatusUnprocessableEntity, paymentResult{Success: false, Message: failures})
			return
		}

		http.Redirect(w, r, link, http.StatusSeeOther)
	}
}

type confirmRequest struct {
	PriceIDs []string `json:"price_ids" validate:"required,min=1,dive,required"`
}

// Confirm clears purchased lines from the cart after Square redirects back.
func Confirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		cartID, ok := middleware.CartIDFrom(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Cart-Id header required"))
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), cartID, payload.PriceIDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, paymentResult{Success: true})
	}
}

// parseCheckoutForm reads the multipart checkout submission. Each
// items[] field holds one JSON-encoded {price, quantity} pair.
func parseCheckoutForm(r *http.Request) ([]checkoutsvc.CheckItem, error) {
	if err := r.ParseMultipartForm(maxCheckoutFormMemory); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form payload")
	}

	raw := r.MultipartForm.Value["items[]"]
	if len(raw) == 0 {
		raw = r.MultipartForm.Value["items"]
	}
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}

	items := make([]checkoutsvc.CheckItem, 0, len(raw))
	for _, field := range raw {
		var item checkoutsvc.CheckItem
		if err := json.Unmarshal([]byte(field), &item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item payload")
		}
		items = append(items, item)
	}
	return items, nil
}
