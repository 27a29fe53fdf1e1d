package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTOPILOT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("AUTOPILOT_PROGRAMMING_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("AUTOPILOT_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("AUTOPILOT_JWT_SIGNING_KEY", "supersecret")
}

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTOPILOT_ENV", "development")
	t.Setenv("AUTOPILOT_CRON_SECRET", "cron")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.CronSecret != "cron" {
		t.Fatalf("unexpected cron secret: %q", cfg.CronSecret)
	}
	if cfg.PoolTarget != 3 {
		t.Fatalf("expected default pool target 3, got %d", cfg.PoolTarget)
	}
	if cfg.FeatureFreshness != 18*time.Hour {
		t.Fatalf("expected 18h freshness, got %s", cfg.FeatureFreshness)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development environment")
	}
}

func TestLoadAcceptsGrimnirFallbackKeys(t *testing.T) {
	t.Setenv("AUTOPILOT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("AUTOPILOT_PROGRAMMING_FILE", "")
	t.Setenv("GRIMNIR_DB_DSN", "file::memory:")
	t.Setenv("GRIMNIR_DB_BACKEND", "sqlite")
	t.Setenv("GRIMNIR_JWT_SIGNING_KEY", "shared")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.DBBackend)
	}
	if cfg.JWTSigningKey != "shared" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("AUTOPILOT_POOL_TARGET=5\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	setRequired(t)
	t.Setenv("AUTOPILOT_ENV_FILE", envFile)
	// godotenv never overrides variables already present, so register cleanup for the loaded key.
	t.Setenv("AUTOPILOT_POOL_TARGET", "")
	os.Unsetenv("AUTOPILOT_POOL_TARGET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PoolTarget != 5 {
		t.Fatalf("expected pool target from env file, got %d", cfg.PoolTarget)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "backend", key: "AUTOPILOT_DB_BACKEND", val: "oracle"},
		{name: "run hour", key: "AUTOPILOT_DAILY_RUN_HOUR", val: "24"},
		{name: "pool target", key: "AUTOPILOT_POOL_TARGET", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoadProductionRequiresCronSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTOPILOT_ENV", "production")
	t.Setenv("AUTOPILOT_CRON_SECRET", "")
	t.Setenv("CRON_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail without a cron secret")
	}

	t.Setenv("AUTOPILOT_CRON_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load with cron secret to succeed: %v", err)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SIGNING_KEY", "legacy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestParseProgrammingKeepsDefaultsForMissingKeys(t *testing.T) {
	p, err := ParseProgramming([]byte("fillers:\n  city: [Portland, Austin]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.ShiftStartHours) != 4 || p.ShiftStartHours[0] != 6 {
		t.Fatalf("expected default shift starts, got %v", p.ShiftStartHours)
	}
	if got := p.Fillers["city"]; len(got) != 2 {
		t.Fatalf("expected city fillers, got %v", got)
	}
}

func TestParseProgrammingOverridesHours(t *testing.T) {
	p, err := ParseProgramming([]byte("shift_start_hours: [5, 12]\nhandoff_hours: [12]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.ShiftStartHours) != 2 || p.ShiftStartHours[1] != 12 {
		t.Fatalf("unexpected shift starts: %v", p.ShiftStartHours)
	}
	if len(p.HandoffHours) != 1 || p.HandoffHours[0] != 12 {
		t.Fatalf("unexpected handoff hours: %v", p.HandoffHours)
	}
}

func TestParseProgrammingRejectsOutOfRangeHour(t *testing.T) {
	if _, err := ParseProgramming([]byte("shift_start_hours: [25]\n")); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestLoadProgrammingMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadProgramming(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.HandoffHours) != 3 {
		t.Fatalf("expected default handoff hours, got %v", p.HandoffHours)
	}
}
