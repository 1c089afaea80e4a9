package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zaymart/zaymart-backend/pkg/logger"
)

type fakeUnlocker struct {
	batches []int
	calls   int
	err     error
}

func (f *fakeUnlocker) UnlockDue(_ context.Context, _ time.Time, _ int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	n := f.batches[f.calls]
	f.calls++
	return n, nil
}

func newUnlockJob(t *testing.T, unlocker *fakeUnlocker, batchSize int) Job {
	t.Helper()
	job, err := NewUnlockJob(UnlockJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Settlement: unlocker,
		BatchSize:  batchSize,
	})
	if err != nil {
		t.Fatalf("NewUnlockJob: %v", err)
	}
	return job
}

func TestUnlockJobDrainsFullBatches(t *testing.T) {
	unlocker := &fakeUnlocker{batches: []int{10, 10, 3}}
	job := newUnlockJob(t, unlocker, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Two full batches mean the sweep keeps going; the short third stops it.
	if unlocker.calls != 3 {
		t.Fatalf("expected 3 sweeps, got %d", unlocker.calls)
	}
}

func TestUnlockJobStopsAfterPartialBatch(t *testing.T) {
	unlocker := &fakeUnlocker{batches: []int{4}}
	job := newUnlockJob(t, unlocker, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if unlocker.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", unlocker.calls)
	}
}

func TestUnlockJobPropagatesErrors(t *testing.T) {
	unlocker := &fakeUnlocker{err: errors.New("db offline")}
	job := newUnlockJob(t, unlocker, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnlockJobRequiresSettlement(t *testing.T) {
	_, err := NewUnlockJob(UnlockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
