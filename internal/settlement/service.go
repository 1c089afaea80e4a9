package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/internal/wallet"
	"github.com/zaymart/zaymart-backend/pkg/config"
	"github.com/zaymart/zaymart-backend/pkg/db"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/metrics"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
	"github.com/zaymart/zaymart-backend/pkg/outbox/payloads"
	"github.com/zaymart/zaymart-backend/pkg/types"
)

// SubOrderSource resolves the sub-orders the orchestrator settles. The
// orders repository satisfies it.
type SubOrderSource interface {
	FindSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	FindSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SubOrder, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Service turns sub-order lifecycle events into ledger effects. Every effect
// of one event lands in one DB transaction; order-level events fan out per
// sub-order as independent units.
type Service interface {
	OnDelivered(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error)
	OnCancelled(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error)
	OnReturned(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error)
	OnOrderCancelled(ctx context.Context, orderID uuid.UUID, effectiveAt time.Time) error
	UnlockDue(ctx context.Context, now time.Time, batchSize int) (int, error)
}

type service struct {
	cfg        config.SettlementConfig
	dbc        *db.Client
	ledgerSvc  ledger.Service
	walletSvc  wallet.Service
	outboxSvc  *outbox.Service
	subOrders  SubOrderSource
	logg       *logger.Logger
	metrics    *metrics.SettlementMetrics
	commission decimal.Decimal
}

// NewService wires the settlement orchestrator.
func NewService(
	cfg config.SettlementConfig,
	dbc *db.Client,
	ledgerSvc ledger.Service,
	walletSvc wallet.Service,
	outboxSvc *outbox.Service,
	subOrders SubOrderSource,
	logg *logger.Logger,
	m *metrics.SettlementMetrics,
) (Service, error) {
	if dbc == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if subOrders == nil {
		return nil, fmt.Errorf("sub-order source required")
	}
	if cfg.HoldWindow <= 0 {
		return nil, fmt.Errorf("hold window must be positive")
	}
	if cfg.CommissionPercent < 0 || cfg.CommissionPercent >= 100 {
		return nil, fmt.Errorf("commission percent must be in [0, 100)")
	}
	return &service{
		cfg:        cfg,
		dbc:        dbc,
		ledgerSvc:  ledgerSvc,
		walletSvc:  walletSvc,
		outboxSvc:  outboxSvc,
		subOrders:  subOrders,
		logg:       logg,
		metrics:    m,
		commission: decimal.NewFromFloat(cfg.CommissionPercent),
	}, nil
}

// Earned is the vendor's share of a sub-order sale total after commission,
// rounded to paise.
func (s *service) Earned(saleTotal decimal.Decimal) decimal.Decimal {
	share := decimal.NewFromInt(100).Sub(s.commission)
	return saleTotal.Mul(share).Div(decimal.NewFromInt(100)).Round(2)
}

// OnDelivered credits the vendor's hold bucket with the earned amount.
// Replays collapse onto the first credit via the ledger idempotency key.
func (s *service) OnDelivered(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error) {
	subOrder, order, err := s.loadSubOrder(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if subOrder.VendorStoreID == nil {
		// Platform-fulfilled partitions settle outside the vendor ledger.
		return nil, nil
	}

	earned := s.Earned(subOrder.SaleTotal)
	unlockAt := effectiveAt.Add(s.cfg.HoldWindow)

	var credit *models.WalletTransaction
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledgerSvc.WithTx(tx)
		walletTx := s.walletSvc.WithTx(tx)

		txn, appendErr := ledgerTx.Append(ctx, ledger.AppendInput{
			VendorStoreID:  *subOrder.VendorStoreID,
			OrderID:        &subOrder.OrderID,
			SubOrderID:     &subOrder.ID,
			Type:           enums.WalletTxnTypeDeliveredHoldCredit,
			Direction:      enums.WalletTxnDirectionCredit,
			Amount:         earned,
			Status:         enums.WalletTxnStatusHold,
			EffectiveAt:    effectiveAt,
			UnlockAt:       &unlockAt,
			IdempotencyKey: ledger.HoldCreditKey(subOrder.ID),
			Meta:           types.OrderMeta(order.OrderCode),
		})
		if appendErr != nil {
			if apperrors.Is(appendErr, apperrors.CodeIdempotency) {
				credit = txn
				return nil
			}
			return appendErr
		}
		credit = txn

		if applyErr := walletTx.Apply(ctx, txn); applyErr != nil {
			return applyErr
		}

		s.metrics.IncTxnAppended(string(txn.Type))
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletHoldCredited,
			AggregateType: enums.AggregateWalletTxn,
			AggregateID:   txn.ID,
			Version:       1,
			OccurredAt:    effectiveAt,
			Data: payloads.WalletHoldCreditedEvent{
				TxnID:         txn.ID,
				VendorStoreID: txn.VendorStoreID,
				SubOrderID:    subOrder.ID,
				Amount:        txn.Amount,
				Currency:      txn.Currency,
				UnlockAt:      unlockAt,
			},
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return credit, nil
}

// OnCancelled reverses the delivery credit for a cancelled sub-order.
func (s *service) OnCancelled(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error) {
	return s.reverse(ctx, subOrderID, effectiveAt, enums.WalletTxnTypeCancelDeduct, ledger.CancelDeductKey(subOrderID), "cancel_deduct")
}

// OnReturned reverses the delivery credit for a returned sub-order.
func (s *service) OnReturned(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time) (*models.WalletTransaction, error) {
	return s.reverse(ctx, subOrderID, effectiveAt, enums.WalletTxnTypeReturnDeduct, ledger.ReturnDeductKey(subOrderID), "return_deduct")
}

// OnOrderCancelled fans the cancellation out over every vendor sub-order.
// Failures are folded with multierr so one vendor never blocks the rest.
func (s *service) OnOrderCancelled(ctx context.Context, orderID uuid.UUID, effectiveAt time.Time) error {
	subOrders, err := s.subOrders.FindSubOrdersByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	var errs error
	for _, subOrder := range subOrders {
		if _, subErr := s.OnCancelled(ctx, subOrder.ID, effectiveAt); subErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("sub-order %s: %w", subOrder.ID, subErr))
		}
	}
	return errs
}

// reverse flips the prior credit to reversed and appends the netting deduct.
// When paid-out funds no longer cover the credit, the uncovered remainder
// becomes a flagged adjustment instead of being silently absorbed.
func (s *service) reverse(ctx context.Context, subOrderID uuid.UUID, effectiveAt time.Time, deductType enums.WalletTxnType, deductKey string, event string) (*models.WalletTransaction, error) {
	subOrder, order, err := s.loadSubOrder(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if subOrder.VendorStoreID == nil {
		return nil, nil
	}

	credit, err := s.ledgerSvc.FindByIdempotencyKey(ctx, ledger.HoldCreditKey(subOrderID))
	if err != nil {
		return nil, err
	}
	if credit == nil {
		// Cancelled before delivery: nothing was earned, nothing to reverse.
		return nil, nil
	}

	if existing, findErr := s.ledgerSvc.FindByIdempotencyKey(ctx, deductKey); findErr != nil {
		return nil, findErr
	} else if existing != nil {
		return existing, nil
	}

	var deduct *models.WalletTransaction
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledgerSvc.WithTx(tx)
		walletTx := s.walletSvc.WithTx(tx)

		bucket, ok := enums.BucketForStatus(credit.Status)
		if !ok {
			// Credit already reversed by a concurrent event; the replay
			// check above will surface its deduct on retry.
			return nil
		}

		// The cover is taken with a conditional decrement rather than a
		// read-then-clamp: a payout committing between the read and the
		// write would push available negative with nothing flagged. A
		// failed claim means a payout got there first; re-read, shrink
		// the cover and try again. At zero the claim always succeeds.
		cover := credit.Amount
		if bucket == enums.BalanceBucketAvailable {
			for {
				claimed, claimErr := walletTx.ClaimAvailable(ctx, credit.VendorStoreID, cover)
				if claimErr != nil {
					return claimErr
				}
				if claimed {
					break
				}
				balance, balErr := walletTx.Balances(ctx, credit.VendorStoreID)
				if balErr != nil {
					return balErr
				}
				next := balance.Available
				if next.IsNegative() {
					next = decimal.Zero
				}
				if next.LessThan(cover) {
					cover = next
				}
			}
		}
		remainder := credit.Amount.Sub(cover)

		deductID := uuid.New()
		reversedCredit, trErr := ledgerTx.Transition(ctx, credit, enums.WalletTxnStatusReversed, &deductID)
		if trErr != nil {
			return trErr
		}
		if applyErr := walletTx.ApplyTransition(ctx, *credit, *reversedCredit); applyErr != nil {
			return applyErr
		}

		deductStatus := enums.WalletTxnStatusHold
		if bucket == enums.BalanceBucketAvailable {
			deductStatus = enums.WalletTxnStatusAvailable
		}
		row, appendErr := ledgerTx.Append(ctx, ledger.AppendInput{
			ID:             deductID,
			VendorStoreID:  credit.VendorStoreID,
			OrderID:        &subOrder.OrderID,
			SubOrderID:     &subOrder.ID,
			Type:           deductType,
			Direction:      enums.WalletTxnDirectionDebit,
			Amount:         cover,
			Status:         deductStatus,
			EffectiveAt:    effectiveAt,
			IdempotencyKey: deductKey,
			ReversalOf:     &credit.ID,
			Meta:           types.OrderMeta(order.OrderCode),
		})
		if appendErr != nil {
			return appendErr
		}
		deduct = row
		// An available-bucket cover was already debited by the claim above;
		// only a hold-bucket deduct still needs projecting.
		if bucket == enums.BalanceBucketHold {
			if applyErr := walletTx.Apply(ctx, row); applyErr != nil {
				return applyErr
			}
		}
		s.metrics.IncTxnAppended(string(row.Type))

		if emitErr := s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletReversed,
			AggregateType: enums.AggregateWalletTxn,
			AggregateID:   credit.ID,
			Version:       1,
			OccurredAt:    effectiveAt,
			Data: payloads.WalletReversedEvent{
				TxnID:         credit.ID,
				DeductTxnID:   row.ID,
				VendorStoreID: credit.VendorStoreID,
				SubOrderID:    &subOrder.ID,
				Amount:        cover,
				Bucket:        bucket,
				Type:          deductType,
			},
		}); emitErr != nil {
			return emitErr
		}

		if remainder.IsPositive() {
			return s.flagShortfall(ctx, tx, ledgerTx, subOrder, order, credit, remainder, effectiveAt, event)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return deduct, nil
}

// flagShortfall records the uncovered remainder of a reversal as a
// zero-weight adjustment that finance must settle by hand.
func (s *service) flagShortfall(ctx context.Context, tx *gorm.DB, ledgerTx ledger.Service, subOrder *models.SubOrder, order *models.Order, credit *models.WalletTransaction, remainder decimal.Decimal, effectiveAt time.Time, event string) error {
	note := fmt.Sprintf("reversal shortfall: available no longer covers %s of the original credit", remainder)
	adjustment, err := ledgerTx.Append(ctx, ledger.AppendInput{
		VendorStoreID:          credit.VendorStoreID,
		OrderID:                &subOrder.OrderID,
		SubOrderID:             &subOrder.ID,
		Type:                   enums.WalletTxnTypeAdjustment,
		Direction:              enums.WalletTxnDirectionDebit,
		Amount:                 remainder,
		Status:                 enums.WalletTxnStatusFailed,
		EffectiveAt:            effectiveAt,
		IdempotencyKey:         ledger.ShortfallAdjustmentKey(subOrder.ID, event),
		ReversalOf:             &credit.ID,
		RequiresReconciliation: true,
		Note:                   &note,
		Meta:                   types.OrderMeta(order.OrderCode),
	})
	if err != nil {
		return err
	}
	s.metrics.IncTxnAppended(string(adjustment.Type))
	s.metrics.IncReconciliationFlag()

	if s.logg != nil {
		fields := map[string]any{
			"vendor_store_id": credit.VendorStoreID.String(),
			"sub_order_id":    subOrder.ID.String(),
			"remainder":       remainder.String(),
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "reversal shortfall flagged for manual reconciliation")
	}

	return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReconciliationFlagged,
		AggregateType: enums.AggregateWalletTxn,
		AggregateID:   adjustment.ID,
		Version:       1,
		OccurredAt:    effectiveAt,
		Data: payloads.ReconciliationFlaggedEvent{
			TxnID:         adjustment.ID,
			VendorStoreID: credit.VendorStoreID,
			SubOrderID:    &subOrder.ID,
			Amount:        remainder,
			Type:          enums.WalletTxnTypeAdjustment,
			Note:          note,
		},
	})
}

// UnlockDue promotes due hold credits to available, one row per transaction.
// A lost CAS means another scheduler got there first and is skipped quietly.
func (s *service) UnlockDue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	due, err := s.ledgerSvc.ListUnlockDue(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}

	unlocked := 0
	var errs error
	for i := range due {
		txn := due[i]
		didUnlock := false
		rowErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
			ledgerTx := s.ledgerSvc.WithTx(tx)
			walletTx := s.walletSvc.WithTx(tx)

			after, trErr := ledgerTx.Transition(ctx, &txn, enums.WalletTxnStatusAvailable, nil)
			if trErr != nil {
				if apperrors.Is(trErr, apperrors.CodeStateConflict) {
					return nil
				}
				return trErr
			}
			if applyErr := walletTx.ApplyTransition(ctx, txn, *after); applyErr != nil {
				return applyErr
			}
			didUnlock = true

			// The promoted credit itself carries the balance move; this
			// row is the zero-weight audit trail of the promotion.
			audit, auditErr := ledgerTx.Append(ctx, ledger.AppendInput{
				VendorStoreID:  txn.VendorStoreID,
				OrderID:        txn.OrderID,
				SubOrderID:     txn.SubOrderID,
				Type:           enums.WalletTxnTypeHoldToAvailable,
				Direction:      enums.WalletTxnDirectionCredit,
				Amount:         txn.Amount,
				Status:         enums.WalletTxnStatusAvailable,
				EffectiveAt:    now,
				IdempotencyKey: ledger.UnlockAuditKey(txn.ID),
				Meta:           txn.Meta,
			})
			if auditErr != nil {
				return auditErr
			}
			s.metrics.IncTxnAppended(string(audit.Type))

			return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventWalletUnlocked,
				AggregateType: enums.AggregateWalletTxn,
				AggregateID:   txn.ID,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.WalletUnlockedEvent{
					TxnID:         txn.ID,
					VendorStoreID: txn.VendorStoreID,
					Amount:        txn.Amount,
					UnlockedAt:    now,
				},
			})
		})
		if rowErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("unlock txn %s: %w", txn.ID, rowErr))
			continue
		}
		if didUnlock {
			unlocked++
			s.metrics.IncUnlock()
		}
	}
	return unlocked, errs
}

func (s *service) loadSubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, *models.Order, error) {
	if subOrderID == uuid.Nil {
		return nil, nil, fmt.Errorf("sub-order id is required")
	}
	subOrder, err := s.subOrders.FindSubOrderByID(ctx, subOrderID)
	if err != nil {
		return nil, nil, err
	}
	if subOrder == nil {
		return nil, nil, apperrors.New(apperrors.CodeNotFound, "sub-order not found")
	}
	order, err := s.subOrders.FindOrderByID(ctx, subOrder.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	return subOrder, order, nil
}
