package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorWalletBalance is the derived per-vendor balance cache. It is never
// authoritative: the projector keeps it in lock-step with ledger writes and
// it can always be rebuilt by replaying the ledger.
type VendorWalletBalance struct {
	VendorStoreID uuid.UUID       `gorm:"column:vendor_store_id;type:uuid;primaryKey"`
	Hold          decimal.Decimal `gorm:"column:hold;type:numeric(14,2);not null;default:0"`
	Available     decimal.Decimal `gorm:"column:available;type:numeric(14,2);not null;default:0"`
	Paid          decimal.Decimal `gorm:"column:paid;type:numeric(14,2);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
