package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 25 {
		t.Fatalf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Fatalf("expected 5s ping timeout, got %v", cfg.PingTimeout)
	}
}

func TestPostgresPoolConfig_KeepsExplicitValues(t *testing.T) {
	cfg := PostgresPoolConfig{MaxOpenConns: 5, PingTimeout: time.Second}.withDefaults()
	if cfg.MaxOpenConns != 5 {
		t.Fatalf("expected explicit max open conns, got %d", cfg.MaxOpenConns)
	}
	if cfg.PingTimeout != time.Second {
		t.Fatalf("expected explicit ping timeout, got %v", cfg.PingTimeout)
	}
}
