package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// Repository manages persistence for orders and their vendor partitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateSubOrders(ctx context.Context, subOrders []models.SubOrder) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	FindSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	FindSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SubOrder, error)
	FindLineItemsBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.OrderLineItem, error)
	UpdateSubOrderStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.SubOrderStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "SubOrders").Create(order).Error
}

func (r *repository) CreateSubOrders(ctx context.Context, subOrders []models.SubOrder) error {
	if len(subOrders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Items").Create(&subOrders).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_code = ?", code).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&subOrder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subOrder, nil
}

func (r *repository) FindSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SubOrder, error) {
	var subOrders []models.SubOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&subOrders).Error
	if err != nil {
		return nil, err
	}
	return subOrders, nil
}

func (r *repository) FindLineItemsBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("sub_order_id = ?", subOrderID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateSubOrderStatusCAS flips status only when the row still holds the
// expected value, mirroring the wallet ledger's compare-and-swap.
func (r *repository) UpdateSubOrderStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.SubOrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
