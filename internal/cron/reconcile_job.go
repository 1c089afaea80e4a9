package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/internal/wallet"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
	"github.com/zaymart/zaymart-backend/pkg/outbox/payloads"
)

type vendorLister interface {
	DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error)
}

type balanceReconciler interface {
	WithTx(tx *gorm.DB) wallet.Service
}

// ReconcileJobParams configure the balance drift sweep.
type ReconcileJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Ledger vendorLister
	Wallet balanceReconciler
	Outbox outboxEmitter
}

// NewReconcileJob rebuilds every vendor's cached balances from the ledger
// and repairs any drift. The repair and its event commit together, one
// vendor per transaction, so a bad vendor never blocks the rest.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &reconcileJob{
		logg:   params.Logger,
		db:     params.DB,
		ledger: params.Ledger,
		wallet: params.Wallet,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type reconcileJob struct {
	logg   *logger.Logger
	db     txRunner
	ledger vendorLister
	wallet balanceReconciler
	outbox outboxEmitter
	now    func() time.Time
}

func (j *reconcileJob) Name() string { return "wallet_balance_reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	vendorIDs, err := j.ledger.DistinctVendorIDs(ctx)
	if err != nil {
		return fmt.Errorf("list vendors: %w", err)
	}

	repaired := 0
	var errs error
	for _, vendorID := range vendorIDs {
		report, vendorErr := j.reconcileVendor(ctx, vendorID)
		if vendorErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", vendorID, vendorErr))
			continue
		}
		if report != nil {
			repaired++
		}
	}

	fields := map[string]any{"vendors": len(vendorIDs), "repaired": repaired}
	j.logg.Info(j.logg.WithFields(ctx, fields), "balance reconcile sweep complete")
	return errs
}

func (j *reconcileJob) reconcileVendor(ctx context.Context, vendorID uuid.UUID) (*wallet.DriftReport, error) {
	var report *wallet.DriftReport
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		walletTx := j.wallet.WithTx(tx)
		r, recErr := walletTx.Reconcile(ctx, vendorID)
		if recErr != nil {
			return recErr
		}
		if r == nil {
			return nil
		}
		report = r
		repairedAt := j.now().UTC()
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceDriftRepaired,
			AggregateType: enums.AggregateVendorWallet,
			AggregateID:   vendorID,
			Version:       1,
			OccurredAt:    repairedAt,
			Data: payloads.BalanceDriftRepairedEvent{
				VendorStoreID: vendorID,
				OldHold:       r.Cached.Hold,
				OldAvailable:  r.Cached.Available,
				OldPaid:       r.Cached.Paid,
				NewHold:       r.Replayed.Hold,
				NewAvailable:  r.Replayed.Available,
				NewPaid:       r.Replayed.Paid,
				RepairedAt:    repairedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
