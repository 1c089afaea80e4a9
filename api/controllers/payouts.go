package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/api/responses"
	"github.com/zaymart/zaymart-backend/api/validators"
	"github.com/zaymart/zaymart-backend/internal/payouts"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
)

type createPayoutBody struct {
	VendorStoreID string `json:"vendor_store_id" validate:"required,uuid4"`
	Amount        string `json:"amount" validate:"required"`
	Reference     string `json:"reference" validate:"required,min=1,max=128"`
}

type failPayoutBody struct {
	Reason string `json:"reason" validate:"required,min=1,max=512"`
}

type payoutResponse struct {
	ID            string `json:"id"`
	VendorStoreID string `json:"vendor_store_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Reference     string `json:"reference,omitempty"`
}

// AdminCreatePayout releases available funds for a vendor.
func AdminCreatePayout(payoutsSvc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID, err := uuid.Parse(body.VendorStoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor store id"))
			return
		}
		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		payout, err := payoutsSvc.Initiate(r.Context(), vendorID, amount, validators.SanitizeString(body.Reference, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPayoutResponse(payout))
	}
}

// AdminFailPayout records a downstream payout failure and restores the funds.
func AdminFailPayout(payoutsSvc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutTxnID, err := uuid.Parse(chi.URLParam(r, "payoutTxnId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout txn id"))
			return
		}

		var body failPayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		audit, err := payoutsSvc.ReportFailed(r.Context(), payoutTxnID, validators.SanitizeString(body.Reason, 512))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPayoutResponse(audit))
	}
}

func toPayoutResponse(txn *models.WalletTransaction) payoutResponse {
	resp := payoutResponse{
		ID:            txn.ID.String(),
		VendorStoreID: txn.VendorStoreID.String(),
		Type:          string(txn.Type),
		Amount:        txn.Amount.StringFixed(2),
		Currency:      string(txn.Currency),
		Status:        string(txn.Status),
	}
	if txn.Meta != nil {
		resp.Reference = txn.Meta.Reference
	}
	return resp
}
