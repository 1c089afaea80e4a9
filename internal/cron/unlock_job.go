package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type holdUnlocker interface {
	UnlockDue(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// UnlockJobParams configure the hold-window sweep.
type UnlockJobParams struct {
	Logger     *logger.Logger
	Settlement holdUnlocker
	BatchSize  int
}

const defaultUnlockBatchSize = 500

// NewUnlockJob sweeps hold credits whose window has elapsed into the
// available bucket. The sweep is safe to run from multiple instances; the
// per-row compare-and-swap means each credit unlocks exactly once.
func NewUnlockJob(params UnlockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultUnlockBatchSize
	}
	return &unlockJob{
		logg:       params.Logger,
		settlement: params.Settlement,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

type unlockJob struct {
	logg       *logger.Logger
	settlement holdUnlocker
	batchSize  int
	now        func() time.Time
}

func (j *unlockJob) Name() string { return "wallet_hold_unlock" }

func (j *unlockJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	total := 0
	// Drain full batches so a backlog clears in one cycle.
	for {
		unlocked, err := j.settlement.UnlockDue(ctx, now, j.batchSize)
		total += unlocked
		if err != nil {
			return fmt.Errorf("unlock due credits: %w", err)
		}
		if unlocked < j.batchSize {
			break
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "unlocked", total), "hold unlock sweep complete")
	return nil
}
