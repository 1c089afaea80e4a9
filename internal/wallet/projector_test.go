package wallet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	walletTxns := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  vendor_store_id TEXT NOT NULL,
  order_id TEXT,
  sub_order_id TEXT,
  type TEXT NOT NULL,
  direction TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  status TEXT NOT NULL,
  effective_at DATETIME NOT NULL,
  unlock_at DATETIME,
  idempotency_key TEXT NOT NULL UNIQUE,
  reversed_from TEXT,
  reversal_of TEXT,
  reversed_by TEXT,
  requires_reconciliation INTEGER NOT NULL DEFAULT 0,
  note TEXT,
  meta TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	balances := `
CREATE TABLE IF NOT EXISTS vendor_wallet_balances (
  vendor_store_id TEXT PRIMARY KEY,
  hold NUMERIC NOT NULL DEFAULT 0,
  available NUMERIC NOT NULL DEFAULT 0,
  paid NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(walletTxns).Error)
	require.NoError(t, db.Exec(balances).Error)
	return db
}

func newProjector(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), ledger.NewRepository(db), nil, nil)
	require.NoError(t, err)
	return svc
}

func appendTxn(t *testing.T, db *gorm.DB, txn *models.WalletTransaction) *models.WalletTransaction {
	t.Helper()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Currency == "" {
		txn.Currency = enums.CurrencyINR
	}
	if txn.EffectiveAt.IsZero() {
		txn.EffectiveAt = time.Now().UTC()
	}
	if txn.IdempotencyKey == "" {
		txn.IdempotencyKey = uuid.NewString()
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func requireBalances(t *testing.T, svc Service, vendorID uuid.UUID, hold, available, paid string) {
	t.Helper()
	b, err := svc.Balances(context.Background(), vendorID)
	require.NoError(t, err)
	assert.True(t, b.Hold.Equal(d(hold)), "hold: got %s want %s", b.Hold, hold)
	assert.True(t, b.Available.Equal(d(available)), "available: got %s want %s", b.Available, available)
	assert.True(t, b.Paid.Equal(d(paid)), "paid: got %s want %s", b.Paid, paid)
}

func TestApplyProjectsHoldCredit(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	txn := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("540.00"),
	})
	require.NoError(t, svc.Apply(ctx, txn))
	requireBalances(t, svc, vendorID, "540.00", "0", "0")
}

func TestApplyTransitionUnlock(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	txn := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("540.00"),
	})
	require.NoError(t, svc.Apply(ctx, txn))

	after := *txn
	after.Status = enums.WalletTxnStatusAvailable
	require.NoError(t, svc.ApplyTransition(ctx, *txn, after))
	requireBalances(t, svc, vendorID, "0", "540.00", "0")
}

func TestApplyPayoutUsesConditionalDecrement(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	credit := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusAvailable,
		Amount:        d("500.00"),
	})
	require.NoError(t, svc.Apply(ctx, credit))

	payout := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypePayoutReleased,
		Direction:     enums.WalletTxnDirectionDebit,
		Status:        enums.WalletTxnStatusPaid,
		Amount:        d("300.00"),
	})
	require.NoError(t, svc.Apply(ctx, payout))
	requireBalances(t, svc, vendorID, "0", "200.00", "300.00")

	// Second payout exceeds what's left; no partial effect.
	over := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypePayoutReleased,
		Direction:     enums.WalletTxnDirectionDebit,
		Status:        enums.WalletTxnStatusPaid,
		Amount:        d("250.00"),
	})
	err := svc.Apply(ctx, over)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientFunds))
	requireBalances(t, svc, vendorID, "0", "200.00", "300.00")
}

func TestReversalSymmetry(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	credit := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("540.00"),
	})
	require.NoError(t, svc.Apply(ctx, credit))

	// Flip the credit reversed, then project the netting deduct.
	holdBucket := enums.BalanceBucketHold
	after := *credit
	after.Status = enums.WalletTxnStatusReversed
	after.ReversedFrom = &holdBucket
	require.NoError(t, db.Model(&models.WalletTransaction{}).
		Where("id = ?", credit.ID).
		Updates(map[string]any{"status": "reversed", "reversed_from": "hold"}).Error)
	require.NoError(t, svc.ApplyTransition(ctx, *credit, after))

	deduct := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeCancelDeduct,
		Direction:     enums.WalletTxnDirectionDebit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("540.00"),
		ReversalOf:    &credit.ID,
	})
	require.NoError(t, svc.Apply(ctx, deduct))

	requireBalances(t, svc, vendorID, "0", "0", "0")

	// Replay agrees with the cache.
	replayed, err := svc.Recompute(ctx, vendorID)
	require.NoError(t, err)
	assert.True(t, replayed.Hold.IsZero())
	assert.True(t, replayed.Available.IsZero())
	assert.True(t, replayed.Paid.IsZero())
}

func TestReconcileRepairsDrift(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	txn := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("540.00"),
	})
	require.NoError(t, svc.Apply(ctx, txn))

	// Corrupt the cache behind the projector's back.
	require.NoError(t, db.Exec(
		`UPDATE vendor_wallet_balances SET hold = ? WHERE vendor_store_id = ?`,
		d("100.00"), vendorID,
	).Error)

	report, err := svc.Reconcile(ctx, vendorID)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Cached.Hold.Equal(d("100.00")))
	assert.True(t, report.Replayed.Hold.Equal(d("540.00")))
	requireBalances(t, svc, vendorID, "540.00", "0", "0")

	// Second pass finds nothing to repair.
	report, err = svc.Reconcile(ctx, vendorID)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestConservationAcrossInterleavings(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	// Credit, unlock, partial payout, then reversal of a second credit.
	first := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusAvailable,
		Amount:        d("600.00"),
	})
	require.NoError(t, svc.Apply(ctx, first))

	second := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("250.00"),
	})
	require.NoError(t, svc.Apply(ctx, second))

	payout := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypePayoutReleased,
		Direction:     enums.WalletTxnDirectionDebit,
		Status:        enums.WalletTxnStatusPaid,
		Amount:        d("400.00"),
	})
	require.NoError(t, svc.Apply(ctx, payout))

	holdBucket := enums.BalanceBucketHold
	reversed := *second
	reversed.Status = enums.WalletTxnStatusReversed
	reversed.ReversedFrom = &holdBucket
	require.NoError(t, db.Model(&models.WalletTransaction{}).
		Where("id = ?", second.ID).
		Updates(map[string]any{"status": "reversed", "reversed_from": "hold"}).Error)
	require.NoError(t, svc.ApplyTransition(ctx, *second, reversed))

	deduct := appendTxn(t, db, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeCancelDeduct,
		Direction:     enums.WalletTxnDirectionDebit,
		Status:        enums.WalletTxnStatusHold,
		Amount:        d("250.00"),
		ReversalOf:    &second.ID,
	})
	require.NoError(t, svc.Apply(ctx, deduct))

	cached, err := svc.Balances(ctx, vendorID)
	require.NoError(t, err)
	replayed, err := svc.Recompute(ctx, vendorID)
	require.NoError(t, err)

	assert.True(t, cached.Hold.Equal(replayed.Hold), "hold: cache %s replay %s", cached.Hold, replayed.Hold)
	assert.True(t, cached.Available.Equal(replayed.Available), "available: cache %s replay %s", cached.Available, replayed.Available)
	assert.True(t, cached.Paid.Equal(replayed.Paid), "paid: cache %s replay %s", cached.Paid, replayed.Paid)

	requireBalances(t, svc, vendorID, "0", "200.00", "400.00")
}

func TestClaimAvailableStopsAtCover(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newProjector(t, db)
	ctx := context.Background()

	vendorID := uuid.New()
	require.NoError(t, svc.Apply(ctx, &models.WalletTransaction{
		VendorStoreID: vendorID,
		Type:          enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:     enums.WalletTxnDirectionCredit,
		Amount:        d("300"),
		Status:        enums.WalletTxnStatusAvailable,
	}))
	requireBalances(t, svc, vendorID, "0", "300", "0")

	claimed, err := svc.ClaimAvailable(ctx, vendorID, d("200"))
	require.NoError(t, err)
	assert.True(t, claimed)
	requireBalances(t, svc, vendorID, "0", "100", "0")

	// An uncovered claim leaves the row untouched instead of going negative.
	claimed, err = svc.ClaimAvailable(ctx, vendorID, d("150"))
	require.NoError(t, err)
	assert.False(t, claimed)
	requireBalances(t, svc, vendorID, "0", "100", "0")

	claimed, err = svc.ClaimAvailable(ctx, vendorID, d("100"))
	require.NoError(t, err)
	assert.True(t, claimed)
	requireBalances(t, svc, vendorID, "0", "0", "0")

	_, err = svc.ClaimAvailable(ctx, vendorID, d("-1"))
	require.Error(t, err)
}
