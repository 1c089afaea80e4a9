package controllers

import (
	"net/http"

	"github.com/zaymart/zaymart-backend/api/middleware"
	"github.com/zaymart/zaymart-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if store := middleware.VendorStoreIDFromContext(r.Context()); store != "" {
			payload["vendor_store_id"] = store
		}
		responses.WriteSuccess(w, payload)
	}
}
