package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaymart/zaymart-backend/pkg/config"
	"github.com/zaymart/zaymart-backend/pkg/db"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/ordercode"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
)

func setupOrdersTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_code TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'placed',
  payment_method TEXT NOT NULL DEFAULT 'prepaid',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'INR',
  sale_total NUMERIC NOT NULL,
  list_total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sub_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_store_id TEXT,
  status TEXT NOT NULL DEFAULT 'placed',
  sale_total NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  delivered_at DATETIME,
  cancelled_at DATETIME,
  returned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sub_order_id TEXT,
  vendor_store_id TEXT,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  color TEXT,
  qty INTEGER NOT NULL,
  unit_sale_price NUMERIC NOT NULL,
  unit_list_price NUMERIC NOT NULL,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}
	return client
}

// fakeCounter hands out a monotonically increasing sequence without redis.
type fakeCounter struct {
	n int64
}

func (c *fakeCounter) IncrWithTTL(_ context.Context, _ string, _ time.Duration) (int64, error) {
	c.n++
	return c.n, nil
}

func (c *fakeCounter) CounterKey(parts ...string) string {
	return "zm:counter:" + strings.Join(parts, ":")
}

func newOrdersService(t *testing.T, client *db.Client) Service {
	t.Helper()
	allocator, err := ordercode.NewAllocator(&fakeCounter{})
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewService(client, NewRepository(client.DB()), allocator, outboxSvc, nil)
	require.NoError(t, err)
	return svc
}

func lineItem(vendorID *uuid.UUID, qty int, salePrice, listPrice, discount string) LineItemInput {
	return LineItemInput{
		ProductID:      uuid.New(),
		VendorStoreID:  vendorID,
		Qty:            qty,
		UnitSalePrice:  decimal.RequireFromString(salePrice),
		UnitListPrice:  decimal.RequireFromString(listPrice),
		DiscountAmount: decimal.RequireFromString(discount),
	}
}

func TestCreateOrderPartitionsByVendor(t *testing.T) {
	client := setupOrdersTestDB(t)
	svc := newOrdersService(t, client)
	ctx := context.Background()

	vendorA := uuid.New()
	vendorB := uuid.New()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodPrepaid,
		Items: []LineItemInput{
			lineItem(&vendorA, 2, "250.00", "300.00", "0"),
			lineItem(&vendorB, 1, "400.00", "450.00", "50.00"),
			lineItem(nil, 1, "99.00", "99.00", "0"),
			lineItem(&vendorA, 1, "100.00", "120.00", "10.00"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	// One partition per vendor plus one platform partition.
	require.Len(t, order.SubOrders, 3)
	require.Len(t, order.Items, 4)

	byVendor := map[string]models.SubOrder{}
	for _, so := range order.SubOrders {
		key := ""
		if so.VendorStoreID != nil {
			key = so.VendorStoreID.String()
		}
		byVendor[key] = so
		assert.Equal(t, enums.SubOrderStatusPlaced, so.Status)
	}
	assert.Equal(t, "590", byVendor[vendorA.String()].SaleTotal.String())
	assert.Equal(t, "350", byVendor[vendorB.String()].SaleTotal.String())
	assert.Equal(t, "99", byVendor[""].SaleTotal.String())

	// Every item lands in exactly one sub-order, and partitions never mix vendors.
	seen := map[string]int{}
	for _, item := range order.Items {
		require.NotNil(t, item.SubOrderID)
		seen[item.SubOrderID.String()]++
		so := byVendor[func() string {
			if item.VendorStoreID == nil {
				return ""
			}
			return item.VendorStoreID.String()
		}()]
		assert.Equal(t, so.ID, *item.SubOrderID)
	}
	assert.Len(t, seen, 3)

	assert.Equal(t, "1039", order.SaleTotal.String())
	assert.Equal(t, "1119", order.ListTotal.String())
	assert.True(t, strings.HasPrefix(order.OrderCode, "ZM-"))

	var eventCount int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventOrderCreated, order.ID).
		Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	client := setupOrdersTestDB(t)
	svc := newOrdersService(t, client)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodPrepaid,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	vendorID := uuid.New()
	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodPrepaid,
		Items:         []LineItemInput{lineItem(&vendorID, 0, "100.00", "100.00", "0")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestTransitionSubOrderLifecycle(t *testing.T) {
	client := setupOrdersTestDB(t)
	svc := newOrdersService(t, client)
	ctx := context.Background()

	vendorID := uuid.New()
	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodPrepaid,
		Items:         []LineItemInput{lineItem(&vendorID, 1, "500.00", "500.00", "0")},
	})
	require.NoError(t, err)
	subOrderID := order.SubOrders[0].ID

	// Skipping straight to delivered is illegal from placed.
	_, err = svc.TransitionSubOrder(ctx, subOrderID, enums.SubOrderStatusDelivered, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStateConflict))

	for _, status := range []enums.SubOrderStatus{
		enums.SubOrderStatusConfirmed,
		enums.SubOrderStatusShipped,
		enums.SubOrderStatusDelivered,
	} {
		_, err = svc.TransitionSubOrder(ctx, subOrderID, status, time.Now().UTC())
		require.NoError(t, err)
	}

	subOrder, err := svc.GetSubOrder(ctx, subOrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubOrderStatusDelivered, subOrder.Status)
	require.NotNil(t, subOrder.DeliveredAt)

	returned, err := svc.TransitionSubOrder(ctx, subOrderID, enums.SubOrderStatusReturned, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, enums.SubOrderStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
}

func TestTransitionSubOrderNotFound(t *testing.T) {
	client := setupOrdersTestDB(t)
	svc := newOrdersService(t, client)

	_, err := svc.TransitionSubOrder(context.Background(), uuid.New(), enums.SubOrderStatusConfirmed, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
