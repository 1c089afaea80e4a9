package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/enums"
	apperrors "github.com/zaymart/zaymart-backend/pkg/errors"
	"github.com/zaymart/zaymart-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(walletTxns).Error)
	return db
}

func newLedgerService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func holdCreditInput(vendorID uuid.UUID, amount string) AppendInput {
	subOrderID := uuid.New()
	unlockAt := time.Now().UTC().Add(240 * time.Hour)
	return AppendInput{
		VendorStoreID:  vendorID,
		SubOrderID:     &subOrderID,
		Type:           enums.WalletTxnTypeDeliveredHoldCredit,
		Direction:      enums.WalletTxnDirectionCredit,
		Amount:         decimal.RequireFromString(amount),
		Status:         enums.WalletTxnStatusHold,
		EffectiveAt:    time.Now().UTC(),
		UnlockAt:       &unlockAt,
		IdempotencyKey: HoldCreditKey(subOrderID),
	}
}

func TestAppendWritesRow(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	vendorID := uuid.New()
	input := holdCreditInput(vendorID, "540.00")

	txn, err := svc.Append(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.NotEqual(t, uuid.Nil, txn.ID)
	assert.Equal(t, enums.WalletTxnStatusHold, txn.Status)
	assert.Equal(t, enums.CurrencyINR, txn.Currency)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("540.00")))

	found, err := svc.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, input.IdempotencyKey, found.IdempotencyKey)
}

func TestAppendDuplicateKeyReturnsExistingRow(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	input := holdCreditInput(uuid.New(), "540.00")

	first, err := svc.Append(ctx, input)
	require.NoError(t, err)

	replay, err := svc.Append(ctx, input)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeIdempotency))
	require.NotNil(t, replay)
	assert.Equal(t, first.ID, replay.ID)

	var count int64
	require.NoError(t, db.Table("wallet_transactions").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAppendValidatesInput(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	input := holdCreditInput(uuid.New(), "540.00")
	input.Amount = decimal.RequireFromString("-1")
	_, err := svc.Append(ctx, input)
	require.Error(t, err)

	input = holdCreditInput(uuid.New(), "540.00")
	input.IdempotencyKey = ""
	_, err = svc.Append(ctx, input)
	require.Error(t, err)

	input = holdCreditInput(uuid.New(), "540.00")
	input.Type = "mystery"
	_, err = svc.Append(ctx, input)
	require.Error(t, err)
}

func TestTransitionHoldToAvailable(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	txn, err := svc.Append(ctx, holdCreditInput(uuid.New(), "540.00"))
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, txn, enums.WalletTxnStatusAvailable, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxnStatusAvailable, updated.Status)

	found, err := svc.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxnStatusAvailable, found.Status)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	txn, err := svc.Append(ctx, holdCreditInput(uuid.New(), "540.00"))
	require.NoError(t, err)

	// hold -> paid is not in the row-level graph.
	_, err = svc.Transition(ctx, txn, enums.WalletTxnStatusPaid, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStateConflict))
}

func TestTransitionLostRaceReturnsErrRowMoved(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	txn, err := svc.Append(ctx, holdCreditInput(uuid.New(), "540.00"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, txn, enums.WalletTxnStatusAvailable, nil)
	require.NoError(t, err)

	// Second writer still holds the stale snapshot.
	_, err = svc.Transition(ctx, txn, enums.WalletTxnStatusAvailable, nil)
	require.ErrorIs(t, err, ErrRowMoved)
}

func TestTransitionToReversedRecordsBucket(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	txn, err := svc.Append(ctx, holdCreditInput(uuid.New(), "540.00"))
	require.NoError(t, err)

	deductID := uuid.New()
	updated, err := svc.Transition(ctx, txn, enums.WalletTxnStatusReversed, &deductID)
	require.NoError(t, err)
	require.NotNil(t, updated.ReversedFrom)
	assert.Equal(t, enums.BalanceBucketHold, *updated.ReversedFrom)

	found, err := svc.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ReversedFrom)
	assert.Equal(t, enums.BalanceBucketHold, *found.ReversedFrom)
	require.NotNil(t, found.ReversedBy)
	assert.Equal(t, deductID, *found.ReversedBy)
}

func TestListByVendorFiltersAndPaginates(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	vendorID := uuid.New()
	otherVendor := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		input := holdCreditInput(vendorID, "100.00")
		input.EffectiveAt = base.Add(time.Duration(i) * time.Hour)
		_, err := svc.Append(ctx, input)
		require.NoError(t, err)
	}
	_, err := svc.Append(ctx, holdCreditInput(otherVendor, "999.00"))
	require.NoError(t, err)

	txns, total, err := svc.ListByVendor(ctx, vendorID, ListFilter{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, txns, 2)
	// Newest first.
	assert.True(t, txns[0].EffectiveAt.After(txns[1].EffectiveAt))

	status := enums.WalletTxnStatusAvailable
	txns, total, err = svc.ListByVendor(ctx, vendorID, ListFilter{Status: &status}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txns)

	from := base.Add(3 * time.Hour)
	txns, total, err = svc.ListByVendor(ctx, vendorID, ListFilter{From: &from}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, txns, 2)
}

func TestListUnlockDue(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	now := time.Now().UTC()
	vendorID := uuid.New()

	due := holdCreditInput(vendorID, "100.00")
	past := now.Add(-time.Hour)
	due.UnlockAt = &past
	dueTxn, err := svc.Append(ctx, due)
	require.NoError(t, err)

	notDue := holdCreditInput(vendorID, "200.00")
	future := now.Add(time.Hour)
	notDue.UnlockAt = &future
	_, err = svc.Append(ctx, notDue)
	require.NoError(t, err)

	txns, err := svc.ListUnlockDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, dueTxn.ID, txns[0].ID)
}

func TestStatsByVendor(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	now := time.Now().UTC()
	vendorID := uuid.New()

	soon := holdCreditInput(vendorID, "100.00")
	early := now.Add(2 * time.Hour)
	soon.UnlockAt = &early
	_, err := svc.Append(ctx, soon)
	require.NoError(t, err)

	later := holdCreditInput(vendorID, "200.00")
	late := now.Add(48 * time.Hour)
	later.UnlockAt = &late
	laterTxn, err := svc.Append(ctx, later)
	require.NoError(t, err)

	// A promoted credit no longer counts toward the hold stats.
	_, err = svc.Transition(ctx, laterTxn, enums.WalletTxnStatusAvailable, nil)
	require.NoError(t, err)

	_, err = svc.Append(ctx, holdCreditInput(uuid.New(), "999.00"))
	require.NoError(t, err)

	stats, err := svc.StatsByVendor(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTxns)
	assert.Equal(t, int64(1), stats.HoldTxns)
	require.NotNil(t, stats.NextUnlockAt)
	assert.WithinDuration(t, early, *stats.NextUnlockAt, time.Second)

	_, err = svc.StatsByVendor(ctx, uuid.Nil)
	require.Error(t, err)
}

func TestAppendReplayInsideTxResolvesWithoutInsert(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	input := holdCreditInput(uuid.New(), "250.00")
	first, err := svc.Append(ctx, input)
	require.NoError(t, err)

	inserts := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("count_wallet_txn_inserts", func(d *gorm.DB) {
			if d.Statement != nil && d.Statement.Schema != nil &&
				d.Statement.Schema.Table == "wallet_transactions" {
				inserts++
			}
		}))

	// A replay inside an open transaction must resolve through a read: the
	// duplicate-key INSERT would abort the whole transaction on Postgres,
	// and the recovery read would fail with it.
	txErr := db.Transaction(func(tx *gorm.DB) error {
		replay, appendErr := svc.WithTx(tx).Append(ctx, input)
		require.Error(t, appendErr)
		assert.True(t, apperrors.Is(appendErr, apperrors.CodeIdempotency))
		require.NotNil(t, replay)
		assert.Equal(t, first.ID, replay.ID)
		return nil
	})
	require.NoError(t, txErr)
	assert.Equal(t, 0, inserts)
}
