package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zaymart/zaymart-backend/api/middleware"
	"github.com/zaymart/zaymart-backend/api/responses"
	"github.com/zaymart/zaymart-backend/api/validators"
	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/internal/wallet"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/pagination"
)

type walletBalancesResponse struct {
	Hold      string `json:"hold"`
	Available string `json:"available"`
	Paid      string `json:"paid"`
}

type walletStatsResponse struct {
	TotalTransactions int64      `json:"total_transactions"`
	HoldTransactions  int64      `json:"hold_transactions"`
	NextUnlockAt      *time.Time `json:"next_unlock_at,omitempty"`
}

type walletSummaryResponse struct {
	VendorStoreID string                 `json:"vendor_store_id"`
	Currency      string                 `json:"currency"`
	Balances      walletBalancesResponse `json:"balances"`
	Stats         walletStatsResponse    `json:"stats"`
}

// walletTxnResponse is the statement view of a ledger row. Internal linkage
// (idempotency keys, reversal pointers) stays out of the payload.
type walletTxnResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Label       string     `json:"label"`
	Direction   string     `json:"direction"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	EffectiveAt time.Time  `json:"effective_at"`
	UnlockAt    *time.Time `json:"unlock_at,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Note        string     `json:"note,omitempty"`
}

type walletTxnListResponse struct {
	Transactions []walletTxnResponse `json:"transactions"`
	Total        int64               `json:"total"`
	Page         int                 `json:"page"`
	Limit        int                 `json:"limit"`
	TotalPages   int                 `json:"total_pages"`
}

// VendorWalletBalance returns the acting vendor's three-bucket balance
// together with ledger activity stats.
func VendorWalletBalance(walletSvc wallet.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorStoreFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := walletSvc.Balances(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := ledgerSvc.StatsByVendor(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletSummaryResponse{
			VendorStoreID: vendorID.String(),
			Currency:      string(enums.CurrencyINR),
			Balances: walletBalancesResponse{
				Hold:      balance.Hold.StringFixed(2),
				Available: balance.Available.StringFixed(2),
				Paid:      balance.Paid.StringFixed(2),
			},
			Stats: walletStatsResponse{
				TotalTransactions: stats.TotalTxns,
				HoldTransactions:  stats.HoldTxns,
				NextUnlockAt:      stats.NextUnlockAt,
			},
		})
	}
}

// VendorWalletTransactions lists the vendor's statement, newest first.
func VendorWalletTransactions(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorStoreFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := parseTxnFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Page: page, Limit: limit}.Normalize()
		txns, total, err := ledgerSvc.ListByVendor(r.Context(), vendorID, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]walletTxnResponse, 0, len(txns))
		for i := range txns {
			items = append(items, toWalletTxnResponse(&txns[i]))
		}

		responses.WriteSuccess(w, walletTxnListResponse{
			Transactions: items,
			Total:        total,
			Page:         params.Page,
			Limit:        params.Limit,
			TotalPages:   pagination.TotalPages(total, params.Limit),
		})
	}
}

func toWalletTxnResponse(txn *models.WalletTransaction) walletTxnResponse {
	resp := walletTxnResponse{
		ID:          txn.ID.String(),
		Type:        string(txn.Type),
		Label:       txn.Type.Label(),
		Direction:   string(txn.Direction),
		Amount:      txn.Amount.StringFixed(2),
		Currency:    string(txn.Currency),
		Status:      string(txn.Status),
		EffectiveAt: txn.EffectiveAt,
		UnlockAt:    txn.UnlockAt,
	}
	if txn.Meta != nil {
		resp.Reference = txn.Meta.Reference
	}
	if txn.Note != nil {
		resp.Note = *txn.Note
	}
	return resp
}

func parseTxnFilter(r *http.Request) (ledger.ListFilter, error) {
	var filter ledger.ListFilter
	q := r.URL.Query()

	if raw := q.Get("type"); raw != "" {
		parsed, err := enums.ParseWalletTxnType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filter.Type = &parsed
	}
	if raw := q.Get("status"); raw != "" {
		parsed, err := enums.ParseWalletTxnStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &parsed
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from must be RFC3339")
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to must be RFC3339")
		}
		filter.To = &to
	}
	return filter, nil
}

func vendorStoreFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorStoreIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor store context missing")
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid vendor store id")
	}
	return vendorID, nil
}
