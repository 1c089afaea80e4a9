package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/db"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/ordercode"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
	"github.com/zaymart/zaymart-backend/pkg/outbox/payloads"
)

// LineItemInput is one purchased line at checkout. Prices and discounts are
// computed upstream; this package only partitions and totals them.
type LineItemInput struct {
	ProductID      uuid.UUID
	VariantID      *uuid.UUID
	VendorStoreID  *uuid.UUID
	Color          *string
	Qty            int
	UnitSalePrice  decimal.Decimal
	UnitListPrice  decimal.Decimal
	DiscountAmount decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID    uuid.UUID
	PaymentMethod enums.PaymentMethod
	PaymentStatus enums.PaymentStatus
	Currency      enums.Currency
	Items         []LineItemInput
}

// Service creates orders and moves their vendor partitions through the
// fulfilment lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, []models.SubOrder, error)
	GetSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	TransitionSubOrder(ctx context.Context, id uuid.UUID, to enums.SubOrderStatus, at time.Time) (*models.SubOrder, error)
}

type service struct {
	dbc       *db.Client
	repo      Repository
	allocator *ordercode.Allocator
	outboxSvc *outbox.Service
	logg      *logger.Logger
}

func NewService(dbc *db.Client, repo Repository, allocator *ordercode.Allocator, outboxSvc *outbox.Service, logg *logger.Logger) (Service, error) {
	if dbc == nil || repo == nil || allocator == nil || outboxSvc == nil {
		return nil, fmt.Errorf("orders service requires db client, repository, allocator and outbox service")
	}
	return &service{
		dbc:       dbc,
		repo:      repo,
		allocator: allocator,
		outboxSvc: outboxSvc,
		logg:      logg,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = enums.PaymentStatusPending
	}

	code, err := s.allocator.Next(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "allocate order code")
	}

	order := &models.Order{
		ID:            uuid.New(),
		OrderCode:     code,
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPlaced,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: paymentStatus,
		Currency:      currency,
	}

	subOrders, items := partition(order, currency, input.Items)
	for _, item := range items {
		order.SaleTotal = order.SaleTotal.Add(item.SaleTotal())
		order.ListTotal = order.ListTotal.Add(item.UnitListPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repoTx.CreateSubOrders(ctx, subOrders); err != nil {
			return err
		}
		if err := repoTx.CreateLineItems(ctx, items); err != nil {
			return err
		}
		subOrderIDs := make([]uuid.UUID, 0, len(subOrders))
		for _, so := range subOrders {
			subOrderIDs = append(subOrderIDs, so.ID)
		}
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderCode:   order.OrderCode,
				CustomerID:  order.CustomerID,
				SubOrderIDs: subOrderIDs,
				SaleTotal:   order.SaleTotal,
				Currency:    order.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"order_code": order.OrderCode,
			"sub_orders": len(subOrders),
		})
		s.logg.Info(logCtx, "order created")
	}
	order.SubOrders = subOrders
	order.Items = items
	return order, nil
}

// partition groups line items by vendor store. A nil vendor store produces a
// platform-fulfilled sub-order that never touches the vendor wallet ledger.
func partition(order *models.Order, currency enums.Currency, inputs []LineItemInput) ([]models.SubOrder, []models.OrderLineItem) {
	type group struct {
		subOrder *models.SubOrder
		items    []int
	}
	keyOf := func(vendor *uuid.UUID) string {
		if vendor == nil {
			return ""
		}
		return vendor.String()
	}

	groups := make(map[string]*group)
	order.SaleTotal = decimal.Zero
	order.ListTotal = decimal.Zero

	items := make([]models.OrderLineItem, 0, len(inputs))
	var keys []string
	for idx, in := range inputs {
		item := models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			VendorStoreID:  in.VendorStoreID,
			ProductID:      in.ProductID,
			VariantID:      in.VariantID,
			Color:          in.Color,
			Qty:            in.Qty,
			UnitSalePrice:  in.UnitSalePrice,
			UnitListPrice:  in.UnitListPrice,
			DiscountAmount: in.DiscountAmount,
		}
		items = append(items, item)

		key := keyOf(in.VendorStoreID)
		g, ok := groups[key]
		if !ok {
			g = &group{subOrder: &models.SubOrder{
				ID:            uuid.New(),
				OrderID:       order.ID,
				VendorStoreID: in.VendorStoreID,
				Status:        enums.SubOrderStatusPlaced,
				Currency:      currency,
			}}
			groups[key] = g
			keys = append(keys, key)
		}
		g.items = append(g.items, idx)
	}

	subOrders := make([]models.SubOrder, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		for _, idx := range g.items {
			items[idx].SubOrderID = &g.subOrder.ID
			g.subOrder.SaleTotal = g.subOrder.SaleTotal.Add(items[idx].SaleTotal())
		}
		subOrders = append(subOrders, *g.subOrder)
	}
	return subOrders, items
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, []models.SubOrder, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	subOrders, err := s.repo.FindSubOrdersByOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, subOrders, nil
}

func (s *service) GetSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	subOrder, err := s.repo.FindSubOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subOrder == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "sub-order not found")
	}
	return subOrder, nil
}

// TransitionSubOrder moves a sub-order to the requested status. Lifecycle
// timestamps (delivered_at, cancelled_at, returned_at) follow the target
// status. Illegal moves and lost races both surface as state conflicts.
func (s *service) TransitionSubOrder(ctx context.Context, id uuid.UUID, to enums.SubOrderStatus, at time.Time) (*models.SubOrder, error) {
	if !to.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown sub-order status %q", to))
	}
	subOrder, err := s.GetSubOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !subOrder.Status.CanTransitionTo(to) {
		return nil, apperrors.New(apperrors.CodeStateConflict,
			fmt.Sprintf("sub-order cannot move from %s to %s", subOrder.Status, to))
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	updates := map[string]any{}
	switch to {
	case enums.SubOrderStatusDelivered:
		updates["delivered_at"] = at
	case enums.SubOrderStatusCancelled:
		updates["cancelled_at"] = at
	case enums.SubOrderStatusReturned:
		updates["returned_at"] = at
	}

	moved, err := s.repo.UpdateSubOrderStatusCAS(ctx, id, subOrder.Status, to, updates)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperrors.New(apperrors.CodeStateConflict, "sub-order moved by a concurrent writer")
	}
	return s.repo.FindSubOrderByID(ctx, id)
}

func validateCreateOrder(input CreateOrderInput) error {
	if input.CustomerID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "customer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "payment method is invalid")
	}
	if len(input.Items) == 0 {
		return apperrors.New(apperrors.CodeValidation, "order requires at least one line item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("item %d: product id is required", i))
		}
		if item.Qty <= 0 {
			return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("item %d: qty must be positive", i))
		}
		if item.UnitSalePrice.IsNegative() || item.UnitListPrice.IsNegative() || item.DiscountAmount.IsNegative() {
			return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("item %d: amounts must not be negative", i))
		}
		if item.DiscountAmount.GreaterThan(item.UnitSalePrice.Mul(decimal.NewFromInt(int64(item.Qty)))) {
			return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("item %d: discount exceeds line total", i))
		}
	}
	return nil
}
