package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zaymart/zaymart-backend/api/responses"
	"github.com/zaymart/zaymart-backend/api/validators"
	"github.com/zaymart/zaymart-backend/internal/orders"
	"github.com/zaymart/zaymart-backend/internal/settlement"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	pkgerrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
)

const (
	webhookEventSubOrderDelivered = "sub_order.delivered"
	webhookEventSubOrderCancelled = "sub_order.cancelled"
	webhookEventSubOrderReturned  = "sub_order.returned"
	webhookEventOrderCancelled    = "order.cancelled"
)

type orderWebhookBody struct {
	Event       string     `json:"event" validate:"required"`
	SubOrderID  *string    `json:"sub_order_id,omitempty"`
	OrderID     *string    `json:"order_id,omitempty"`
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
}

// OrderWebhook ingests fulfilment lifecycle events from the logistics
// provider. Redeliveries are safe: status moves tolerate an already-applied
// transition and the settlement side collapses onto the ledger idempotency
// keys.
func OrderWebhook(ordersSvc orders.Service, settlementSvc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body orderWebhookBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		effectiveAt := time.Now().UTC()
		if body.EffectiveAt != nil {
			effectiveAt = body.EffectiveAt.UTC()
		}

		var err error
		switch body.Event {
		case webhookEventSubOrderDelivered:
			err = handleSubOrderEvent(r, ordersSvc, settlementSvc, body, enums.SubOrderStatusDelivered, effectiveAt)
		case webhookEventSubOrderCancelled:
			err = handleSubOrderEvent(r, ordersSvc, settlementSvc, body, enums.SubOrderStatusCancelled, effectiveAt)
		case webhookEventSubOrderReturned:
			err = handleSubOrderEvent(r, ordersSvc, settlementSvc, body, enums.SubOrderStatusReturned, effectiveAt)
		case webhookEventOrderCancelled:
			err = handleOrderCancelled(r, ordersSvc, settlementSvc, body, effectiveAt)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown webhook event")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logg.Info(logg.WithField(r.Context(), "event", body.Event), "order webhook processed")
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

func handleSubOrderEvent(r *http.Request, ordersSvc orders.Service, settlementSvc settlement.Service, body orderWebhookBody, to enums.SubOrderStatus, effectiveAt time.Time) error {
	if body.SubOrderID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sub_order_id is required")
	}
	subOrderID, err := uuid.Parse(*body.SubOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sub_order_id")
	}

	if err := transitionTolerant(r, ordersSvc, subOrderID, to, effectiveAt); err != nil {
		return err
	}
	return settleTransition(r, settlementSvc, subOrderID, to, effectiveAt)
}

func handleOrderCancelled(r *http.Request, ordersSvc orders.Service, settlementSvc settlement.Service, body orderWebhookBody, effectiveAt time.Time) error {
	if body.OrderID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	orderID, err := uuid.Parse(*body.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id")
	}

	_, subOrders, err := ordersSvc.GetOrder(r.Context(), orderID)
	if err != nil {
		return err
	}
	for _, subOrder := range subOrders {
		if err := transitionTolerant(r, ordersSvc, subOrder.ID, enums.SubOrderStatusCancelled, effectiveAt); err != nil {
			return err
		}
	}
	return settlementSvc.OnOrderCancelled(r.Context(), orderID, effectiveAt)
}

// transitionTolerant applies a lifecycle move but treats "already at the
// target status" as success, so a redelivered webhook does not fail before
// reaching the idempotent settlement step.
func transitionTolerant(r *http.Request, ordersSvc orders.Service, subOrderID uuid.UUID, to enums.SubOrderStatus, at time.Time) error {
	_, err := ordersSvc.TransitionSubOrder(r.Context(), subOrderID, to, at)
	if err == nil || !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		return err
	}
	subOrder, findErr := ordersSvc.GetSubOrder(r.Context(), subOrderID)
	if findErr != nil {
		return findErr
	}
	if subOrder.Status == to {
		return nil
	}
	return err
}
