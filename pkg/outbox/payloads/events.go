package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// OrderCreatedEvent signals a new checkout split into per-vendor sub-orders.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderCode   string          `json:"order_code"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	SubOrderIDs []uuid.UUID     `json:"sub_order_ids"`
	SaleTotal   decimal.Decimal `json:"sale_total"`
	Currency    enums.Currency  `json:"currency"`
}

// WalletHoldCreditedEvent is emitted when a delivered sub-order earns a hold credit.
type WalletHoldCreditedEvent struct {
	TxnID         uuid.UUID       `json:"txn_id"`
	VendorStoreID uuid.UUID       `json:"vendor_store_id"`
	SubOrderID    uuid.UUID       `json:"sub_order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      enums.Currency  `json:"currency"`
	UnlockAt      time.Time       `json:"unlock_at"`
}

// WalletUnlockedEvent reports a hold credit promoted to available balance.
type WalletUnlockedEvent struct {
	TxnID         uuid.UUID       `json:"txn_id"`
	VendorStoreID uuid.UUID       `json:"vendor_store_id"`
	Amount        decimal.Decimal `json:"amount"`
	UnlockedAt    time.Time       `json:"unlocked_at"`
}

// WalletReversedEvent reports a ledger row flipped to reversed with its netting deduct.
type WalletReversedEvent struct {
	TxnID         uuid.UUID           `json:"txn_id"`
	DeductTxnID   uuid.UUID           `json:"deduct_txn_id"`
	VendorStoreID uuid.UUID           `json:"vendor_store_id"`
	SubOrderID    *uuid.UUID          `json:"sub_order_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Bucket        enums.BalanceBucket `json:"bucket"`
	Type          enums.WalletTxnType `json:"type"`
}

// PayoutReleasedEvent is emitted when available funds move to paid.
type PayoutReleasedEvent struct {
	TxnID         uuid.UUID       `json:"txn_id"`
	VendorStoreID uuid.UUID       `json:"vendor_store_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      enums.Currency  `json:"currency"`
	Reference     string          `json:"reference"`
	ReleasedAt    time.Time       `json:"released_at"`
}

// PayoutFailedEvent is emitted when a released payout is reported failed downstream.
type PayoutFailedEvent struct {
	TxnID         uuid.UUID       `json:"txn_id"`
	PayoutTxnID   uuid.UUID       `json:"payout_txn_id"`
	VendorStoreID uuid.UUID       `json:"vendor_store_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
	FailedAt      time.Time       `json:"failed_at"`
}

// ReconciliationFlaggedEvent asks finance to inspect a ledger row by hand.
type ReconciliationFlaggedEvent struct {
	TxnID         uuid.UUID           `json:"txn_id"`
	VendorStoreID uuid.UUID           `json:"vendor_store_id"`
	SubOrderID    *uuid.UUID          `json:"sub_order_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Type          enums.WalletTxnType `json:"type"`
	Note          string              `json:"note,omitempty"`
}

// BalanceDriftRepairedEvent reports a cached balance rebuilt from the ledger.
type BalanceDriftRepairedEvent struct {
	VendorStoreID uuid.UUID       `json:"vendor_store_id"`
	OldHold       decimal.Decimal `json:"old_hold"`
	OldAvailable  decimal.Decimal `json:"old_available"`
	OldPaid       decimal.Decimal `json:"old_paid"`
	NewHold       decimal.Decimal `json:"new_hold"`
	NewAvailable  decimal.Decimal `json:"new_available"`
	NewPaid       decimal.Decimal `json:"new_paid"`
	RepairedAt    time.Time       `json:"repaired_at"`
}
