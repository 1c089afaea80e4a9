package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/enums"
	"github.com/zaymart/zaymart-backend/pkg/types"
)

// WalletTransaction is one row of the append-only vendor money ledger.
// Amount and type/direction are immutable once written; only Status moves,
// and only along the graph guarded by the ledger store. Corrections are
// always new linked rows, never edits.
type WalletTransaction struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorStoreID  uuid.UUID                `gorm:"column:vendor_store_id;type:uuid;not null;index"`
	OrderID        *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	SubOrderID     *uuid.UUID               `gorm:"column:sub_order_id;type:uuid;index"`
	Type           enums.WalletTxnType      `gorm:"column:type;type:wallet_txn_type_enum;not null"`
	Direction      enums.WalletTxnDirection `gorm:"column:direction;type:wallet_txn_direction_enum;not null"`
	Amount         decimal.Decimal          `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency       enums.Currency           `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status         enums.WalletTxnStatus    `gorm:"column:status;type:wallet_txn_status_enum;not null"`
	EffectiveAt    time.Time                `gorm:"column:effective_at;not null;index"`
	UnlockAt       *time.Time               `gorm:"column:unlock_at;index"`
	IdempotencyKey string                   `gorm:"column:idempotency_key;not null;uniqueIndex:ux_wallet_txns_idempotency_key"`

	// ReversedFrom records which bucket held the funds when the row was
	// reversed; replay needs it because Status no longer names a bucket.
	ReversedFrom *enums.BalanceBucket `gorm:"column:reversed_from;type:text"`
	ReversalOf   *uuid.UUID           `gorm:"column:reversal_of;type:uuid"`
	ReversedBy   *uuid.UUID           `gorm:"column:reversed_by;type:uuid"`

	RequiresReconciliation bool `gorm:"column:requires_reconciliation;not null;default:false"`

	Note *string        `gorm:"column:note"`
	Meta *types.TxnMeta `gorm:"column:meta;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SignedAmount is the statement view of the amount: direction carries the sign.
func (t WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Direction == enums.WalletTxnDirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
