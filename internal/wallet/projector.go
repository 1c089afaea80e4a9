package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/metrics"
)

// ReplaySource yields a vendor's full ledger in stable order. The ledger
// repository satisfies it.
type ReplaySource interface {
	ListForReplay(ctx context.Context, vendorStoreID uuid.UUID) ([]models.WalletTransaction, error)
}

// DriftReport describes a cache repaired by Reconcile.
type DriftReport struct {
	VendorStoreID uuid.UUID
	Cached        models.VendorWalletBalance
	Replayed      models.VendorWalletBalance
}

// Service projects ledger rows onto the per-vendor balance cache. Every
// mutation of vendor_wallet_balances in the system goes through here, inside
// the same DB transaction as the ledger write it mirrors.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Apply(ctx context.Context, txn *models.WalletTransaction) error
	ApplyTransition(ctx context.Context, before, after models.WalletTransaction) error
	ClaimAvailable(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error)
	Balances(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error)
	Recompute(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error)
	Reconcile(ctx context.Context, vendorStoreID uuid.UUID) (*DriftReport, error)
}

type service struct {
	repo    Repository
	replay  ReplaySource
	logg    *logger.Logger
	metrics *metrics.SettlementMetrics
}

// NewService wires a balance projector.
func NewService(repo Repository, replay ReplaySource, logg *logger.Logger, m *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet balance repository required")
	}
	if replay == nil {
		return nil, fmt.Errorf("ledger replay source required")
	}
	return &service{repo: repo, replay: replay, logg: logg, metrics: m}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	return &clone
}

// Apply projects a freshly appended row. Payout releases use the conditional
// decrement so a concurrent payout can never push available negative.
func (s *service) Apply(ctx context.Context, txn *models.WalletTransaction) error {
	if txn == nil {
		return fmt.Errorf("wallet transaction required")
	}

	if txn.Type == enums.WalletTxnTypePayoutReleased && txn.Status == enums.WalletTxnStatusPaid {
		debited, err := s.repo.DebitAvailableForPayout(ctx, txn.VendorStoreID, txn.Amount)
		if err != nil {
			return err
		}
		if !debited {
			return apperrors.New(apperrors.CodeInsufficientFunds,
				"available balance does not cover the payout")
		}
		return nil
	}

	return s.repo.ApplyDelta(ctx, txn.VendorStoreID, Contribution(*txn))
}

// ApplyTransition projects a status flip as the difference between the row's
// contribution after and before the move.
func (s *service) ApplyTransition(ctx context.Context, before, after models.WalletTransaction) error {
	if before.ID != after.ID {
		return fmt.Errorf("transition rows must describe the same wallet txn")
	}
	delta := Contribution(after).Sub(Contribution(before))
	return s.repo.ApplyDelta(ctx, after.VendorStoreID, delta)
}

// ClaimAvailable conditionally debits available without touching paid. The
// reversal path uses it to take its cover, so a payout committing between a
// balance read and the debit shrinks the claim instead of going negative.
func (s *service) ClaimAvailable(ctx context.Context, vendorStoreID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if vendorStoreID == uuid.Nil {
		return false, fmt.Errorf("vendor store id is required")
	}
	if amount.IsNegative() {
		return false, fmt.Errorf("claim amount must be non-negative")
	}
	return s.repo.ClaimAvailable(ctx, vendorStoreID, amount)
}

func (s *service) Balances(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error) {
	if vendorStoreID == uuid.Nil {
		return nil, fmt.Errorf("vendor store id is required")
	}
	return s.repo.Get(ctx, vendorStoreID)
}

// Recompute rebuilds a vendor's balances by replaying every ledger row
// through the contribution function. It never writes; Reconcile does.
func (s *service) Recompute(ctx context.Context, vendorStoreID uuid.UUID) (*models.VendorWalletBalance, error) {
	if vendorStoreID == uuid.Nil {
		return nil, fmt.Errorf("vendor store id is required")
	}
	txns, err := s.replay.ListForReplay(ctx, vendorStoreID)
	if err != nil {
		return nil, err
	}

	var sum Delta
	for _, txn := range txns {
		sum = sum.Add(Contribution(txn))
	}
	return &models.VendorWalletBalance{
		VendorStoreID: vendorStoreID,
		Hold:          sum.Hold,
		Available:     sum.Available,
		Paid:          sum.Paid,
	}, nil
}

// Reconcile compares the cache against a full replay. On drift it logs,
// overwrites the cache with the replayed truth and bumps the repair metric.
// A nil report means the cache was already correct.
func (s *service) Reconcile(ctx context.Context, vendorStoreID uuid.UUID) (*DriftReport, error) {
	cached, err := s.repo.Get(ctx, vendorStoreID)
	if err != nil {
		return nil, err
	}
	replayed, err := s.Recompute(ctx, vendorStoreID)
	if err != nil {
		return nil, err
	}

	if cached.Hold.Equal(replayed.Hold) &&
		cached.Available.Equal(replayed.Available) &&
		cached.Paid.Equal(replayed.Paid) {
		return nil, nil
	}

	if s.logg != nil {
		fields := map[string]any{
			"vendor_store_id":  vendorStoreID.String(),
			"cached_hold":      cached.Hold.String(),
			"cached_available": cached.Available.String(),
			"cached_paid":      cached.Paid.String(),
			"replay_hold":      replayed.Hold.String(),
			"replay_available": replayed.Available.String(),
			"replay_paid":      replayed.Paid.String(),
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "vendor balance drift detected, repairing cache")
	}

	if err := s.repo.Overwrite(ctx, *replayed); err != nil {
		return nil, err
	}
	s.metrics.IncDriftRepair()

	return &DriftReport{
		VendorStoreID: vendorStoreID,
		Cached:        *cached,
		Replayed:      *replayed,
	}, nil
}
