package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/types"
)

type fakePayoutsService struct {
	initiateVendor uuid.UUID
	initiateAmount decimal.Decimal
	initiateRef    string
	initiateOut    *models.WalletTransaction
	initiateErr    error

	failedID     uuid.UUID
	failedReason string
	failedOut    *models.WalletTransaction
	failedErr    error
}

func (f *fakePayoutsService) Initiate(_ context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal, reference string) (*models.WalletTransaction, error) {
	f.initiateVendor = vendorStoreID
	f.initiateAmount = amount
	f.initiateRef = reference
	return f.initiateOut, f.initiateErr
}

func (f *fakePayoutsService) ReportFailed(_ context.Context, payoutTxnID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	f.failedID = payoutTxnID
	f.failedReason = reason
	return f.failedOut, f.failedErr
}

func TestAdminCreatePayout(t *testing.T) {
	vendorID := uuid.New()
	svc := &fakePayoutsService{
		initiateOut: &models.WalletTransaction{
			ID:            uuid.New(),
			VendorStoreID: vendorID,
			Type:          enums.WalletTxnTypePayoutReleased,
			Amount:        decimal.RequireFromString("700.00"),
			Currency:      enums.CurrencyINR,
			Status:        enums.WalletTxnStatusPaid,
			Meta:          types.PayoutMeta("UTR-42"),
		},
	}

	body, _ := json.Marshal(map[string]string{
		"vendor_store_id": vendorID.String(),
		"amount":          "700.00",
		"reference":       "UTR-42",
	})
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", bytes.NewReader(body))
	AdminCreatePayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.initiateVendor != vendorID || svc.initiateRef != "UTR-42" {
		t.Fatalf("service received %s / %s", svc.initiateVendor, svc.initiateRef)
	}
	if !svc.initiateAmount.Equal(decimal.RequireFromString("700.00")) {
		t.Fatalf("amount mismatch: %s", svc.initiateAmount)
	}

	var envelope struct {
		Data payoutResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Reference != "UTR-42" {
		t.Fatalf("reference missing from response: %+v", envelope.Data)
	}
}

func TestAdminCreatePayoutRejectsBadInput(t *testing.T) {
	cases := []map[string]string{
		{"vendor_store_id": "nope", "amount": "10.00", "reference": "r"},
		{"vendor_store_id": uuid.NewString(), "amount": "ten", "reference": "r"},
		{"vendor_store_id": uuid.NewString(), "amount": "10.00"},
	}
	for i, payload := range cases {
		body, _ := json.Marshal(payload)
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", bytes.NewReader(body))
		AdminCreatePayout(&fakePayoutsService{}, nil).ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400 got %d", i, resp.Code)
		}
	}
}

func TestAdminCreatePayoutInsufficientFunds(t *testing.T) {
	svc := &fakePayoutsService{
		initiateErr: pkgerrors.New(pkgerrors.CodeInsufficientFunds, "available balance 500.00 is less than payout 700.00"),
	}
	body, _ := json.Marshal(map[string]string{
		"vendor_store_id": uuid.NewString(),
		"amount":          "700.00",
		"reference":       "UTR-43",
	})
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", bytes.NewReader(body))
	AdminCreatePayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("less than payout")) {
		t.Fatalf("expected specific message, got %s", resp.Body.String())
	}
}

func TestAdminFailPayout(t *testing.T) {
	payoutID := uuid.New()
	svc := &fakePayoutsService{
		failedOut: &models.WalletTransaction{
			ID:            uuid.New(),
			VendorStoreID: uuid.New(),
			Type:          enums.WalletTxnTypePayoutFailed,
			Amount:        decimal.RequireFromString("700.00"),
			Currency:      enums.CurrencyINR,
			Status:        enums.WalletTxnStatusFailed,
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewReader([]byte(`{"reason":"bank bounced the transfer"}`)))
	req = withURLParam(req, "payoutTxnId", payoutID.String())
	resp := httptest.NewRecorder()
	AdminFailPayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.failedID != payoutID {
		t.Fatalf("expected payout %s got %s", payoutID, svc.failedID)
	}
	if svc.failedReason != "bank bounced the transfer" {
		t.Fatalf("reason mismatch: %q", svc.failedReason)
	}
}

func TestAdminFailPayoutRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewReader([]byte(`{"reason":"r"}`)))
	req = withURLParam(req, "payoutTxnId", "not-a-uuid")
	resp := httptest.NewRecorder()
	AdminFailPayout(&fakePayoutsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
