package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestProgramLogKey(t *testing.T) {
	got := ProgramLogKey("st-1", "2026-02-25", 6)
	if got != "autopilot:cache:program_log:st-1:2026-02-25:6" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := Disabled(zerolog.Nop())
	ctx := context.Background()

	if c.IsAvailable() {
		t.Fatal("expected disabled cache")
	}
	if err := c.SetProgramLog(ctx, "st", "2026-02-25", 6, map[string]int{"a": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var dest map[string]int
	if c.GetProgramLog(ctx, "st", "2026-02-25", 6, &dest) {
		t.Fatal("expected miss")
	}
	if err := c.InvalidateStation(ctx, "st"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewWithUnreachableRedisDisablesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	c := New(cfg, zerolog.Nop())
	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled when redis is unreachable")
	}
}
