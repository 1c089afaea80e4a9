package ledger

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
	"github.com/zaymart/zaymart-backend/pkg/pagination"
	"github.com/zaymart/zaymart-backend/pkg/types"
)

// ErrRowMoved reports a lost compare-and-swap: another writer already moved
// the row. Schedulers treat it as a no-op instead of a failure.
var ErrRowMoved = apperrors.New(apperrors.CodeStateConflict, "wallet transaction already moved by a concurrent writer")

// AppendInput captures the immutable data a ledger row requires. ID is
// optional; callers set it when they must link the row before it exists.
type AppendInput struct {
	ID                     uuid.UUID
	VendorStoreID          uuid.UUID
	OrderID                *uuid.UUID
	SubOrderID             *uuid.UUID
	Type                   enums.WalletTxnType
	Direction              enums.WalletTxnDirection
	Amount                 decimal.Decimal
	Status                 enums.WalletTxnStatus
	EffectiveAt            time.Time
	UnlockAt               *time.Time
	IdempotencyKey         string
	ReversalOf             *uuid.UUID
	RequiresReconciliation bool
	Note                   *string
	Meta                   *types.TxnMeta
}

// Service defines append and transition operations over the wallet ledger.
// Both run against whatever gorm handle the repository is bound to, so the
// orchestrator can scope them inside a single transaction via WithTx.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.WalletTransaction, error)
	Transition(ctx context.Context, txn *models.WalletTransaction, next enums.WalletTxnStatus, reversedBy *uuid.UUID) (*models.WalletTransaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.WalletTransaction, int64, error)
	StatsByVendor(ctx context.Context, vendorStoreID uuid.UUID) (*VendorStats, error)
	ListUnlockDue(ctx context.Context, now time.Time, limit int) ([]models.WalletTransaction, error)
	DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Append writes one immutable ledger row. A reused idempotency key returns
// the existing row together with an IDEMPOTENCY_KEY_REUSED error; callers
// that expect replays check the code and keep the row.
func (s *service) Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error) {
	if err := validateAppendInput(input); err != nil {
		return nil, err
	}

	// Replays resolve through a read before the insert: a duplicate-key
	// INSERT aborts the surrounding transaction on Postgres, and nothing
	// can be read back from an aborted transaction. The unique index still
	// backstops the concurrent first-write race below.
	if existing, err := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, apperrors.New(apperrors.CodeIdempotency, "idempotency key already used")
	}

	txn := &models.WalletTransaction{
		ID:                     input.ID,
		VendorStoreID:          input.VendorStoreID,
		OrderID:                input.OrderID,
		SubOrderID:             input.SubOrderID,
		Type:                   input.Type,
		Direction:              input.Direction,
		Amount:                 input.Amount,
		Currency:               enums.CurrencyINR,
		Status:                 input.Status,
		EffectiveAt:            input.EffectiveAt,
		UnlockAt:               input.UnlockAt,
		IdempotencyKey:         input.IdempotencyKey,
		ReversalOf:             input.ReversalOf,
		RequiresReconciliation: input.RequiresReconciliation,
		Note:                   input.Note,
		Meta:                   input.Meta,
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	if err := s.repo.Append(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "ux_wallet_txns_idempotency_key") {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			return existing, apperrors.Wrap(apperrors.CodeIdempotency, err, "idempotency key already used")
		}
		return nil, err
	}
	return txn, nil
}

// Transition moves a row along the legal status graph with a compare-and-swap.
// Flipping to reversed records the bucket the funds occupied so replay keeps
// the row's contribution stable.
func (s *service) Transition(ctx context.Context, txn *models.WalletTransaction, next enums.WalletTxnStatus, reversedBy *uuid.UUID) (*models.WalletTransaction, error) {
	if txn == nil {
		return nil, fmt.Errorf("wallet transaction required")
	}
	if !next.IsValid() {
		return nil, fmt.Errorf("invalid wallet txn status %q", next)
	}
	if !txn.Status.CanTransitionTo(next) {
		return nil, apperrors.New(apperrors.CodeStateConflict,
			fmt.Sprintf("illegal wallet txn transition %s -> %s", txn.Status, next))
	}

	updates := map[string]any{}
	if next == enums.WalletTxnStatusReversed {
		bucket, ok := enums.BucketForStatus(txn.Status)
		if !ok {
			return nil, apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("cannot reverse wallet txn in status %s", txn.Status))
		}
		updates["reversed_from"] = string(bucket)
		if reversedBy != nil {
			updates["reversed_by"] = *reversedBy
		}
	}

	swapped, err := s.repo.UpdateStatusCAS(ctx, txn.ID, txn.Status, next, updates)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrRowMoved
	}

	updated := *txn
	updated.Status = next
	if next == enums.WalletTxnStatusReversed {
		bucket, _ := enums.BucketForStatus(txn.Status)
		updated.ReversedFrom = &bucket
		updated.ReversedBy = reversedBy
	}
	return &updated, nil
}

func (s *service) FindByIdempotencyKey(ctx context.Context, key string) (*models.WalletTransaction, error) {
	if key == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	return s.repo.FindByIdempotencyKey(ctx, key)
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("wallet txn id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.WalletTransaction, int64, error) {
	if vendorStoreID == uuid.Nil {
		return nil, 0, fmt.Errorf("vendor store id is required")
	}
	page = page.Normalize()
	return s.repo.ListByVendor(ctx, vendorStoreID, filter, page)
}

func (s *service) StatsByVendor(ctx context.Context, vendorStoreID uuid.UUID) (*VendorStats, error) {
	if vendorStoreID == uuid.Nil {
		return nil, fmt.Errorf("vendor store id is required")
	}
	return s.repo.StatsByVendor(ctx, vendorStoreID)
}

func (s *service) ListUnlockDue(ctx context.Context, now time.Time, limit int) ([]models.WalletTransaction, error) {
	return s.repo.ListUnlockDue(ctx, now, limit)
}

func (s *service) DistinctVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.DistinctVendorIDs(ctx)
}

func validateAppendInput(input AppendInput) error {
	if input.VendorStoreID == uuid.Nil {
		return fmt.Errorf("vendor store id is required")
	}
	if !input.Type.IsValid() {
		return fmt.Errorf("invalid wallet txn type %q", input.Type)
	}
	if !input.Direction.IsValid() {
		return fmt.Errorf("invalid wallet txn direction %q", input.Direction)
	}
	if !input.Status.IsValid() {
		return fmt.Errorf("invalid wallet txn status %q", input.Status)
	}
	if input.Amount.IsNegative() {
		return fmt.Errorf("wallet txn amount must be non-negative")
	}
	if input.EffectiveAt.IsZero() {
		return fmt.Errorf("effective_at is required")
	}
	if input.IdempotencyKey == "" {
		return fmt.Errorf("idempotency key is required")
	}
	if input.Meta != nil {
		if err := input.Meta.Validate(); err != nil {
			return fmt.Errorf("invalid txn meta: %w", err)
		}
	}
	return nil
}
