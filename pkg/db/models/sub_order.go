package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// SubOrder is the per-vendor partition of one customer order. It is created
// once, at order placement, and never restructured; only status moves.
// VendorStoreID is nil for platform-fulfilled partitions, which settle
// outside the vendor wallet ledger.
type SubOrder struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	VendorStoreID *uuid.UUID           `gorm:"column:vendor_store_id;type:uuid;index"`
	Status        enums.SubOrderStatus `gorm:"column:status;type:sub_order_status_enum;not null;default:'placed'"`
	SaleTotal     decimal.Decimal      `gorm:"column:sale_total;type:numeric(14,2);not null"`
	Currency      enums.Currency       `gorm:"column:currency;type:text;not null;default:'INR'"`

	Items []OrderLineItem `gorm:"foreignKey:SubOrderID"`

	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	ReturnedAt  *time.Time `gorm:"column:returned_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
