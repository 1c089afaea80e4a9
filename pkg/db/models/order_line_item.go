package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is one purchased product line. VendorStoreID is nil for
// platform-fulfilled items. DiscountAmount is the externally-computed
// per-line discount, consumed here and never recomputed.
type OrderLineItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	SubOrderID     *uuid.UUID      `gorm:"column:sub_order_id;type:uuid;index"`
	VendorStoreID  *uuid.UUID      `gorm:"column:vendor_store_id;type:uuid;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Color          *string         `gorm:"column:color"`
	Qty            int             `gorm:"column:qty;not null"`
	UnitSalePrice  decimal.Decimal `gorm:"column:unit_sale_price;type:numeric(14,2);not null"`
	UnitListPrice  decimal.Decimal `gorm:"column:unit_list_price;type:numeric(14,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(14,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SaleTotal is the line's contribution to its sub-order sale total.
func (i OrderLineItem) SaleTotal() decimal.Decimal {
	gross := i.UnitSalePrice.Mul(decimal.NewFromInt(int64(i.Qty)))
	return gross.Sub(i.DiscountAmount)
}
