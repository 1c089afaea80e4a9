package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/internal/wallet"
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

// Service moves available funds to paid and records downstream payout
// failures. The actual money movement happens outside this system; the
// ledger only mirrors it.
type Service interface {
	Initiate(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal, reference string) (*models.WalletTransaction, error)
	ReportFailed(ctx context.Context, payoutTxnID uuid.UUID, reason string) (*models.WalletTransaction, error)
}

type service struct {
	dbc       *db.Client
	ledgerSvc ledger.Service
	walletSvc wallet.Service
	outboxSvc *outbox.Service
	logg      *logger.Logger
	metrics   *metrics.SettlementMetrics
}

func NewService(
	dbc *db.Client,
	ledgerSvc ledger.Service,
	walletSvc wallet.Service,
	outboxSvc *outbox.Service,
	logg *logger.Logger,
	m *metrics.SettlementMetrics,
) (Service, error) {
	if dbc == nil || ledgerSvc == nil || walletSvc == nil || outboxSvc == nil {
		return nil, fmt.Errorf("payouts service requires db client, ledger, wallet and outbox services")
	}
	return &service{
		dbc:       dbc,
		ledgerSvc: ledgerSvc,
		walletSvc: walletSvc,
		outboxSvc: outboxSvc,
		logg:      logg,
		metrics:   m,
	}, nil
}

// Initiate releases a payout against the vendor's available balance. The
// ledger row and the conditional balance decrement commit together, so an
// insufficient balance leaves no trace. Replays with the same reference
// return the original row.
func (s *service) Initiate(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal, reference string) (*models.WalletTransaction, error) {
	if vendorStoreID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "vendor store id is required")
	}
	if !amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "payout amount must be positive")
	}
	if reference == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "payout reference is required")
	}

	releasedAt := time.Now().UTC()
	var payout *models.WalletTransaction
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledgerSvc.WithTx(tx)
		walletTx := s.walletSvc.WithTx(tx)

		txn, appendErr := ledgerTx.Append(ctx, ledger.AppendInput{
			VendorStoreID:  vendorStoreID,
			Type:           enums.WalletTxnTypePayoutReleased,
			Direction:      enums.WalletTxnDirectionDebit,
			Amount:         amount,
			Status:         enums.WalletTxnStatusPaid,
			EffectiveAt:    releasedAt,
			IdempotencyKey: ledger.PayoutKey(vendorStoreID, reference),
			Meta:           types.PayoutMeta(reference),
		})
		if appendErr != nil {
			if apperrors.Is(appendErr, apperrors.CodeIdempotency) {
				payout = txn
				return nil
			}
			return appendErr
		}
		payout = txn

		if applyErr := walletTx.Apply(ctx, txn); applyErr != nil {
			return applyErr
		}
		s.metrics.IncTxnAppended(string(txn.Type))

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutReleased,
			AggregateType: enums.AggregateWalletTxn,
			AggregateID:   txn.ID,
			Version:       1,
			OccurredAt:    releasedAt,
			Data: payloads.PayoutReleasedEvent{
				TxnID:         txn.ID,
				VendorStoreID: txn.VendorStoreID,
				Amount:        txn.Amount,
				Currency:      txn.Currency,
				Reference:     reference,
				ReleasedAt:    releasedAt,
			},
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, vendorStoreID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"payout_txn_id": payout.ID.String(),
			"amount":        amount.String(),
			"reference":     reference,
		}), "payout released")
	}
	return payout, nil
}

// ReportFailed reverses a released payout after the downstream transfer
// bounced. The paid row flips to reversed, which restores the available
// balance, and a zero-weight audit row records the failure reason.
func (s *service) ReportFailed(ctx context.Context, payoutTxnID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	payout, err := s.ledgerSvc.FindByID(ctx, payoutTxnID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payout transaction not found")
	}
	if payout.Type != enums.WalletTxnTypePayoutReleased {
		return nil, apperrors.New(apperrors.CodeValidation, "transaction is not a payout release")
	}

	if existing, findErr := s.ledgerSvc.FindByIdempotencyKey(ctx, ledger.PayoutFailedKey(payoutTxnID)); findErr != nil {
		return nil, findErr
	} else if existing != nil {
		return existing, nil
	}
	if payout.Status != enums.WalletTxnStatusPaid {
		return nil, apperrors.New(apperrors.CodeStateConflict,
			fmt.Sprintf("payout is %s, only paid payouts can fail", payout.Status))
	}

	failedAt := time.Now().UTC()
	var audit *models.WalletTransaction
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledgerSvc.WithTx(tx)
		walletTx := s.walletSvc.WithTx(tx)

		auditID := uuid.New()
		reversed, trErr := ledgerTx.Transition(ctx, payout, enums.WalletTxnStatusReversed, &auditID)
		if trErr != nil {
			return trErr
		}
		if applyErr := walletTx.ApplyTransition(ctx, *payout, *reversed); applyErr != nil {
			return applyErr
		}

		note := reason
		row, appendErr := ledgerTx.Append(ctx, ledger.AppendInput{
			ID:             auditID,
			VendorStoreID:  payout.VendorStoreID,
			Type:           enums.WalletTxnTypePayoutFailed,
			Direction:      enums.WalletTxnDirectionCredit,
			Amount:         payout.Amount,
			Status:         enums.WalletTxnStatusFailed,
			EffectiveAt:    failedAt,
			IdempotencyKey: ledger.PayoutFailedKey(payoutTxnID),
			ReversalOf:     &payout.ID,
			Note:           &note,
			Meta:           payout.Meta,
		})
		if appendErr != nil {
			return appendErr
		}
		audit = row
		s.metrics.IncTxnAppended(string(row.Type))

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutFailed,
			AggregateType: enums.AggregateWalletTxn,
			AggregateID:   payout.ID,
			Version:       1,
			OccurredAt:    failedAt,
			Data: payloads.PayoutFailedEvent{
				TxnID:         row.ID,
				PayoutTxnID:   payout.ID,
				VendorStoreID: payout.VendorStoreID,
				Amount:        payout.Amount,
				Reason:        reason,
				FailedAt:      failedAt,
			},
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, payout.VendorStoreID.String())
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"payout_txn_id": payout.ID.String(),
			"reason":        reason,
		}), "payout reported failed, funds returned to available")
	}
	return audit, nil
}
