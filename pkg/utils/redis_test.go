package utils

import (
	"context"
	"testing"
	"time"
)

func TestRingScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if ringAcquireScript == nil || ringReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireRingSlot_ValidatesArgs(t *testing.T) {
	ctx := context.Background()

	if _, err := AcquireRingSlot(ctx, nil, "ring:u1", 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseRingSlot(ctx, nil, "ring:u1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if cfg.PoolSize != 20 {
		t.Fatalf("expected default pool size 20, got %d", cfg.PoolSize)
	}
	if cfg.DialTimeout != 3*time.Second {
		t.Fatalf("expected default dial timeout 3s, got %v", cfg.DialTimeout)
	}
}
