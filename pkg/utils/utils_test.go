package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxConns != 25 || cfg.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	// Explicit values survive.
	cfg = PostgresPoolConfig{MaxConns: 5}.withDefaults()
	if cfg.MaxConns != 5 {
		t.Fatalf("explicit MaxConns overridden: %+v", cfg)
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if cfg.PoolSize != 20 || cfg.DialTimeout != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
