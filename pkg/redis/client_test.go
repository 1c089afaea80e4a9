package redis

import (
	"testing"
	"time"

	"github.com/zaymart/zaymart-backend/pkg/config"
)

func TestOptionsFromConfig_URLWins(t *testing.T) {
	cfg := config.RedisConfig{
		URL:      "redis://:secret@cache.internal:6380/2",
		Address:  "ignored:6379",
		PoolSize: 12,
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "cache.internal:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 12 {
		t.Fatalf("expected pool size fallback, got %d", opts.PoolSize)
	}
}

func TestOptionsFromConfig_AddressFallback(t *testing.T) {
	cfg := config.RedisConfig{
		Address:     "localhost:6379",
		Password:    "pw",
		DB:          1,
		DialTimeout: 2 * time.Second,
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.Password != "pw" || opts.DB != 1 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected dial timeout %v", opts.DialTimeout)
	}
}

func TestOptionsFromConfig_RequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address set")
	}
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	if got := c.LockKey("settlement-worker"); got != "zm:lock:settlement-worker" {
		t.Fatalf("lock key = %q", got)
	}
	if got := c.CounterKey("ordercode", "20260829"); got != "zm:counter:ordercode:20260829" {
		t.Fatalf("counter key = %q", got)
	}
	if got := c.CounterKey(" ", "x"); got != "zm:counter:x" {
		t.Fatalf("blank parts should be dropped, got %q", got)
	}
}
