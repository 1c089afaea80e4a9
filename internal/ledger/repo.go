package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	"github.com/zaymart/zaymart-backend/pkg/pagination"
)

// ListFilter narrows vendor statement queries.
type ListFilter struct {
	Type   *enums.WalletTxnType
	Status *enums.WalletTxnStatus
	From   *time.Time
	To     *time.Time
}

// VendorStats summarizes a vendor's ledger activity for the wallet view.
type VendorStats struct {
	TotalTxns    int64
	HoldTxns     int64
	NextUnlockAt *time.Time
}

// Repository manages persistence for the append-only wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, txn *models.WalletTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.WalletTransaction, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.WalletTxnStatus, updates map[string]any) (bool, error)
	ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.WalletTransaction, int64, error)
	StatsByVendor(ctx context.Context, vendorStoreID uuid.UUID) (*VendorStats, error)
	ListForReplay(ctx context.Context, vendorStoreID uuid.UUID) ([]models.WalletTransaction, error)
	ListUnlockDue(ctx context.Context, now time.Time, limit int) ([]models.WalletTransaction, error)
	DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// UpdateStatusCAS flips status only when the row still holds the expected
// value. It reports whether this writer won; a false result with a nil error
// means another writer moved the row first.
func (r *repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.WalletTxnStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.WalletTransaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("vendor_store_id = ?", vendorStoreID)

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("effective_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("effective_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.WalletTransaction
	err := query.
		Order("effective_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *repository) StatsByVendor(ctx context.Context, vendorStoreID uuid.UUID) (*VendorStats, error) {
	var stats VendorStats

	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("vendor_store_id = ?", vendorStoreID).
		Count(&stats.TotalTxns).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("vendor_store_id = ? AND status = ?", vendorStoreID, enums.WalletTxnStatusHold).
		Count(&stats.HoldTxns).Error
	if err != nil {
		return nil, err
	}

	var next models.WalletTransaction
	err = r.db.WithContext(ctx).
		Select("unlock_at").
		Where("vendor_store_id = ? AND status = ? AND unlock_at IS NOT NULL", vendorStoreID, enums.WalletTxnStatusHold).
		Order("unlock_at ASC").
		First(&next).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		stats.NextUnlockAt = next.UnlockAt
	}
	return &stats, nil
}

func (r *repository) ListForReplay(ctx context.Context, vendorStoreID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("vendor_store_id = ?", vendorStoreID).
		Order("effective_at ASC").
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListUnlockDue(ctx context.Context, now time.Time, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	query := r.db.WithContext(ctx).
		Where("type = ?", enums.WalletTxnTypeDeliveredHoldCredit).
		Where("status = ?", enums.WalletTxnStatusHold).
		Where("unlock_at IS NOT NULL AND unlock_at <= ?", now).
		Order("unlock_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Distinct("vendor_store_id").
		Pluck("vendor_store_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
