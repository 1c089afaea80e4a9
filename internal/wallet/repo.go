package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
)

// Repository manages persistence for the derived vendor balance cache.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error)
	ApplyDelta(ctx context.Context, vendorStoreID uuid.UUID, delta Delta) error
	DebitAvailableForPayout(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error)
	ClaimAvailable(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error)
	Overwrite(ctx context.Context, balance models.VendorWalletBalance) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a balance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get returns the cached balance, or a zero-valued row when the vendor has
// no ledger history yet.
func (r *repository) Get(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error) {
	var balance models.VendorWalletBalance
	err := r.db.WithContext(ctx).
		Where("vendor_store_id = ?", vendorStoreID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.VendorWalletBalance{
				VendorStoreID: vendorStoreID,
				Hold:          decimal.Zero,
				Available:     decimal.Zero,
				Paid:          decimal.Zero,
			}, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) ensureRow(ctx context.Context, vendorStoreID uuid.UUID) error {
	row := models.VendorWalletBalance{
		VendorStoreID: vendorStoreID,
		Hold:          decimal.Zero,
		Available:     decimal.Zero,
		Paid:          decimal.Zero,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (r *repository) ApplyDelta(ctx context.Context, vendorStoreID uuid.UUID, delta Delta) error {
	if delta.IsZero() {
		return nil
	}
	if err := r.ensureRow(ctx, vendorStoreID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE vendor_wallet_balances
		 SET hold = hold + ?, available = available + ?, paid = paid + ?, updated_at = ?
		 WHERE vendor_store_id = ?`,
		delta.Hold, delta.Available, delta.Paid, time.Now().UTC(), vendorStoreID,
	).Error
}

// DebitAvailableForPayout moves amount from available to paid only when
// available still covers it, so concurrent payouts can never overdraw. It
// reports whether the decrement happened.
func (r *repository) DebitAvailableForPayout(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if err := r.ensureRow(ctx, vendorStoreID); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE vendor_wallet_balances
		 SET available = available - ?, paid = paid + ?, updated_at = ?
		 WHERE vendor_store_id = ? AND available >= ?`,
		amount, amount, time.Now().UTC(), vendorStoreID, amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimAvailable debits amount from available only while available still
// covers it, reporting whether the claim happened. Unlike the payout debit
// it leaves paid untouched; reversals use it to take their cover without
// ever pushing available negative.
func (r *repository) ClaimAvailable(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if err := r.ensureRow(ctx, vendorStoreID); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE vendor_wallet_balances
		 SET available = available - ?, updated_at = ?
		 WHERE vendor_store_id = ? AND available >= ?`,
		amount, time.Now().UTC(), vendorStoreID, amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Overwrite(ctx context.Context, balance models.VendorWalletBalance) error {
	if err := r.ensureRow(ctx, balance.VendorStoreID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE vendor_wallet_balances
		 SET hold = ?, available = ?, paid = ?, updated_at = ?
		 WHERE vendor_store_id = ?`,
		balance.Hold, balance.Available, balance.Paid, time.Now().UTC(), balance.VendorStoreID,
	).Error
}
