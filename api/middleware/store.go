package middleware

import (
	"net/http"

	"github.com/zaymart/zaymart-backend/api/responses"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
)

// VendorContext rejects requests whose token carries no vendor store. Vendor
// wallet routes are meaningless without one.
func VendorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if VendorStoreIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor store context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
