package middleware

import (
	"net/http"
	"strings"

	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

const cartIDHeader = "X-Cart-Id"

// CartID reads the caller's cart identity header and seeds the request
// context. Requests without the header pass through untouched; handlers
// that need a cart reject those themselves.
func CartID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cartID := strings.TrimSpace(r.Header.Get(cartIDHeader))
			if cartID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithCartID(r.Context(), cartID)
			if logg != nil {
				ctx = logg.WithCartID(ctx, cartID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
