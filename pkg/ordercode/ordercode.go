package ordercode

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Counter is the subset of the redis client used to allocate daily sequences.
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(parts ...string) string
}

const (
	codePrefix = "ZM"
	// counterTTL keeps the daily counter alive well past midnight so late
	// writers never restart the sequence mid-day.
	counterTTL = 48 * time.Hour
)

// Allocator hands out human-readable order codes of the form ZM-YYYYMMDD-NNNN.
// The sequence restarts each day; uniqueness is still backed by the orders
// table unique index.
type Allocator struct {
	counter Counter
	now     func() time.Time
}

func NewAllocator(counter Counter) (*Allocator, error) {
	if counter == nil {
		return nil, errors.New("counter is required")
	}
	return &Allocator{counter: counter, now: time.Now}, nil
}

// Next allocates the next order code for today (UTC).
func (a *Allocator) Next(ctx context.Context) (string, error) {
	day := a.now().UTC().Format("20060102")
	key := a.counter.CounterKey("ordercode", day)
	seq, err := a.counter.IncrWithTTL(ctx, key, counterTTL)
	if err != nil {
		return "", fmt.Errorf("allocating order code sequence: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", codePrefix, day, seq), nil
}
