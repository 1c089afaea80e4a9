package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/api/middleware"
	"github.com/zaymart/zaymart-backend/api/responses"
	"github.com/zaymart/zaymart-backend/api/validators"
	"github.com/zaymart/zaymart-backend/internal/orders"
	"github.com/zaymart/zaymart-backend/internal/settlement"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
)

type orderLineItemBody struct {
	ProductID      string  `json:"product_id" validate:"required,uuid4"`
	VariantID      *string `json:"variant_id,omitempty"`
	VendorStoreID  *string `json:"vendor_store_id,omitempty"`
	Color          *string `json:"color,omitempty"`
	Qty            int     `json:"qty" validate:"required,min=1"`
	UnitSalePrice  string  `json:"unit_sale_price" validate:"required"`
	UnitListPrice  string  `json:"unit_list_price" validate:"required"`
	DiscountAmount string  `json:"discount_amount,omitempty"`
}

type createOrderBody struct {
	PaymentMethod string              `json:"payment_method" validate:"required"`
	Items         []orderLineItemBody `json:"items" validate:"required,min=1,dive"`
}

type subOrderResponse struct {
	ID            string     `json:"id"`
	VendorStoreID *string    `json:"vendor_store_id,omitempty"`
	Status        string     `json:"status"`
	SaleTotal     string     `json:"sale_total"`
	Currency      string     `json:"currency"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	OrderCode     string             `json:"order_code"`
	Status        string             `json:"status"`
	PaymentMethod string             `json:"payment_method"`
	PaymentStatus string             `json:"payment_status"`
	Currency      string             `json:"currency"`
	SaleTotal     string             `json:"sale_total"`
	ListTotal     string             `json:"list_total"`
	SubOrders     []subOrderResponse `json:"sub_orders"`
}

// CreateOrder places an order for the authenticated customer and splits it
// into per-vendor sub-orders.
func CreateOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing customer identity"))
			return
		}

		var body createOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentMethod, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]orders.LineItemInput, 0, len(body.Items))
		for i := range body.Items {
			item, convErr := toLineItemInput(body.Items[i])
			if convErr != nil {
				responses.WriteError(r.Context(), logg, w, convErr)
				return
			}
			items = append(items, item)
		}

		order, err := ordersSvc.CreateOrder(r.Context(), orders.CreateOrderInput{
			CustomerID:    customerID,
			PaymentMethod: paymentMethod,
			Currency:      enums.CurrencyINR,
			Items:         items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order, order.SubOrders))
	}
}

// GetOrder returns one order with its vendor partitions.
func GetOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, subOrders, err := ordersSvc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order, subOrders))
	}
}

type transitionSubOrderBody struct {
	Status string `json:"status" validate:"required"`
}

// TransitionSubOrder moves a sub-order through its lifecycle and settles the
// vendor wallet side effect in the same request.
func TransitionSubOrder(ordersSvc orders.Service, settlementSvc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subOrderID, err := uuid.Parse(chi.URLParam(r, "subOrderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sub-order id"))
			return
		}

		var body transitionSubOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseSubOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		now := time.Now().UTC()
		subOrder, err := ordersSvc.TransitionSubOrder(r.Context(), subOrderID, status, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := settleTransition(r, settlementSvc, subOrderID, status, now); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubOrderResponse(*subOrder))
	}
}

// settleTransition applies the wallet side effect of a lifecycle move. The
// settlement layer is idempotent, so a retry after a failure here converges.
func settleTransition(r *http.Request, settlementSvc settlement.Service, subOrderID uuid.UUID, status enums.SubOrderStatus, at time.Time) error {
	switch status {
	case enums.SubOrderStatusDelivered:
		_, err := settlementSvc.OnDelivered(r.Context(), subOrderID, at)
		return err
	case enums.SubOrderStatusCancelled:
		_, err := settlementSvc.OnCancelled(r.Context(), subOrderID, at)
		return err
	case enums.SubOrderStatusReturned:
		_, err := settlementSvc.OnReturned(r.Context(), subOrderID, at)
		return err
	default:
		return nil
	}
}

func toLineItemInput(body orderLineItemBody) (orders.LineItemInput, error) {
	var item orders.LineItemInput

	productID, err := uuid.Parse(body.ProductID)
	if err != nil {
		return item, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	item.ProductID = productID
	item.Qty = body.Qty
	item.Color = body.Color

	if body.VariantID != nil {
		variantID, parseErr := uuid.Parse(*body.VariantID)
		if parseErr != nil {
			return item, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid variant id")
		}
		item.VariantID = &variantID
	}
	if body.VendorStoreID != nil {
		vendorID, parseErr := uuid.Parse(*body.VendorStoreID)
		if parseErr != nil {
			return item, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid vendor store id")
		}
		item.VendorStoreID = &vendorID
	}

	if item.UnitSalePrice, err = decimal.NewFromString(body.UnitSalePrice); err != nil {
		return item, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit sale price")
	}
	if item.UnitListPrice, err = decimal.NewFromString(body.UnitListPrice); err != nil {
		return item, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit list price")
	}
	if body.DiscountAmount != "" {
		if item.DiscountAmount, err = decimal.NewFromString(body.DiscountAmount); err != nil {
			return item, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount amount")
		}
	}
	return item, nil
}

func toOrderResponse(order *models.Order, subOrders []models.SubOrder) orderResponse {
	resp := orderResponse{
		ID:            order.ID.String(),
		OrderCode:     order.OrderCode,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		PaymentStatus: string(order.PaymentStatus),
		Currency:      string(order.Currency),
		SaleTotal:     order.SaleTotal.StringFixed(2),
		ListTotal:     order.ListTotal.StringFixed(2),
		SubOrders:     make([]subOrderResponse, 0, len(subOrders)),
	}
	for _, subOrder := range subOrders {
		resp.SubOrders = append(resp.SubOrders, toSubOrderResponse(subOrder))
	}
	return resp
}

func toSubOrderResponse(subOrder models.SubOrder) subOrderResponse {
	resp := subOrderResponse{
		ID:          subOrder.ID.String(),
		Status:      string(subOrder.Status),
		SaleTotal:   subOrder.SaleTotal.StringFixed(2),
		Currency:    string(subOrder.Currency),
		DeliveredAt: subOrder.DeliveredAt,
		CancelledAt: subOrder.CancelledAt,
		ReturnedAt:  subOrder.ReturnedAt,
	}
	if subOrder.VendorStoreID != nil {
		id := subOrder.VendorStoreID.String()
		resp.VendorStoreID = &id
	}
	return resp
}
