package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// Order is a customer purchase event. Line items are immutable after
// creation; only status fields move.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode     string              `gorm:"column:order_code;not null;uniqueIndex:ux_orders_order_code"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status_enum;not null;default:'placed'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method_enum;not null;default:'prepaid'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status_enum;not null;default:'pending'"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'INR'"`
	SaleTotal     decimal.Decimal     `gorm:"column:sale_total;type:numeric(14,2);not null"`
	ListTotal     decimal.Decimal     `gorm:"column:list_total;type:numeric(14,2);not null"`

	Items     []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	SubOrders []SubOrder      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
