/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	CronSecret    string
	MetricsBind   string

	// Audio locations
	AudioPublicBaseURL string // Prefix for relative audio paths when S3 is not configured
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3Region           string
	S3Bucket           string
	S3Endpoint         string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle     bool   // Required for MinIO
	S3PresignTTL       time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string
	ProgramLogCacheTTL    time.Duration

	// Event relay
	NATSURL string

	// External collaborators
	PlaylistBuilderURL  string
	ScriptGeneratorURL  string
	AudioGeneratorURL   string
	CollaboratorToken   string
	CollaboratorTimeout time.Duration

	// Daily jobs
	SchedulerEnabled  bool
	DailyRunHour      int // Station-local hour the pool and daily jobs fire
	PoolTarget        int
	FeatureFreshness  time.Duration
	RandomSeed        int64 // 0 seeds from the clock
	ProgrammingFile   string
	Programming       *Programming
	LegacyEnvWarnings []string
}

// Load reads an optional .env file and the environment, applies defaults, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnvAny([]string{"AUTOPILOT_ENV_FILE"}, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Environment:   getEnvAny([]string{"AUTOPILOT_ENV", "GRIMNIR_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"AUTOPILOT_HTTP_BIND", "GRIMNIR_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"AUTOPILOT_HTTP_PORT", "GRIMNIR_HTTP_PORT"}, 8090),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"AUTOPILOT_DB_BACKEND", "GRIMNIR_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"AUTOPILOT_DB_DSN", "GRIMNIR_DB_DSN"}, ""),
		JWTSigningKey: getEnvAny([]string{"AUTOPILOT_JWT_SIGNING_KEY", "GRIMNIR_JWT_SIGNING_KEY"}, ""),
		CronSecret:    getEnvAny([]string{"AUTOPILOT_CRON_SECRET", "CRON_SECRET"}, ""),
		MetricsBind:   getEnvAny([]string{"AUTOPILOT_METRICS_BIND", "GRIMNIR_METRICS_BIND"}, "127.0.0.1:9010"),

		// Audio locations
		AudioPublicBaseURL: getEnvAny([]string{"AUTOPILOT_AUDIO_PUBLIC_BASE_URL", "GRIMNIR_S3_PUBLIC_BASE_URL"}, ""),
		S3AccessKeyID:      getEnvAny([]string{"AUTOPILOT_S3_ACCESS_KEY_ID", "GRIMNIR_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey:  getEnvAny([]string{"AUTOPILOT_S3_SECRET_ACCESS_KEY", "GRIMNIR_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:           getEnvAny([]string{"AUTOPILOT_S3_REGION", "GRIMNIR_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:           getEnvAny([]string{"AUTOPILOT_S3_BUCKET", "GRIMNIR_S3_BUCKET"}, ""),
		S3Endpoint:         getEnvAny([]string{"AUTOPILOT_S3_ENDPOINT", "GRIMNIR_S3_ENDPOINT"}, ""),
		S3UsePathStyle:     getEnvBoolAny([]string{"AUTOPILOT_S3_USE_PATH_STYLE", "GRIMNIR_S3_USE_PATH_STYLE"}, false),
		S3PresignTTL:       time.Duration(getEnvIntAny([]string{"AUTOPILOT_S3_PRESIGN_TTL_MINUTES"}, 180)) * time.Minute,

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"AUTOPILOT_TRACING_ENABLED", "GRIMNIR_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"AUTOPILOT_OTLP_ENDPOINT", "GRIMNIR_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"AUTOPILOT_TRACING_SAMPLE_RATE", "GRIMNIR_TRACING_SAMPLE_RATE"}, 1.0),

		// Multi-instance configuration
		LeaderElectionEnabled: getEnvBoolAny([]string{"AUTOPILOT_LEADER_ELECTION_ENABLED", "GRIMNIR_LEADER_ELECTION_ENABLED"}, false),
		RedisAddr:             getEnvAny([]string{"AUTOPILOT_REDIS_ADDR", "GRIMNIR_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:         getEnvAny([]string{"AUTOPILOT_REDIS_PASSWORD", "GRIMNIR_REDIS_PASSWORD"}, ""),
		RedisDB:               getEnvIntAny([]string{"AUTOPILOT_REDIS_DB", "GRIMNIR_REDIS_DB"}, 0),
		InstanceID:            getEnvAny([]string{"AUTOPILOT_INSTANCE_ID", "GRIMNIR_INSTANCE_ID"}, ""),
		ProgramLogCacheTTL:    time.Duration(getEnvIntAny([]string{"AUTOPILOT_PROGRAM_LOG_CACHE_SECONDS"}, 60)) * time.Second,

		NATSURL: getEnvAny([]string{"AUTOPILOT_NATS_URL", "GRIMNIR_NATS_URL"}, ""),

		// External collaborators
		PlaylistBuilderURL:  getEnvAny([]string{"AUTOPILOT_PLAYLIST_BUILDER_URL"}, ""),
		ScriptGeneratorURL:  getEnvAny([]string{"AUTOPILOT_SCRIPT_GENERATOR_URL"}, ""),
		AudioGeneratorURL:   getEnvAny([]string{"AUTOPILOT_AUDIO_GENERATOR_URL"}, ""),
		CollaboratorToken:   getEnvAny([]string{"AUTOPILOT_COLLABORATOR_TOKEN"}, ""),
		CollaboratorTimeout: time.Duration(getEnvIntAny([]string{"AUTOPILOT_COLLABORATOR_TIMEOUT_SECONDS"}, 300)) * time.Second,

		// Daily jobs
		SchedulerEnabled: getEnvBoolAny([]string{"AUTOPILOT_SCHEDULER_ENABLED"}, false),
		DailyRunHour:     getEnvIntAny([]string{"AUTOPILOT_DAILY_RUN_HOUR"}, 2),
		PoolTarget:       getEnvIntAny([]string{"AUTOPILOT_POOL_TARGET"}, 3),
		FeatureFreshness: time.Duration(getEnvIntAny([]string{"AUTOPILOT_FEATURE_FRESHNESS_HOURS"}, 18)) * time.Hour,
		RandomSeed:       int64(getEnvIntAny([]string{"AUTOPILOT_RANDOM_SEED"}, 0)),
		ProgrammingFile:  getEnvAny([]string{"AUTOPILOT_PROGRAMMING_FILE"}, "programming.yaml"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("AUTOPILOT_DB_DSN or GRIMNIR_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("AUTOPILOT_JWT_SIGNING_KEY or GRIMNIR_JWT_SIGNING_KEY must be provided")
	}

	if cfg.DailyRunHour < 0 || cfg.DailyRunHour > 23 {
		return nil, fmt.Errorf("AUTOPILOT_DAILY_RUN_HOUR must be between 0 and 23, got %d", cfg.DailyRunHour)
	}

	if cfg.PoolTarget < 1 {
		return nil, fmt.Errorf("AUTOPILOT_POOL_TARGET must be positive, got %d", cfg.PoolTarget)
	}

	if cfg.IsProduction() && cfg.CronSecret == "" {
		return nil, fmt.Errorf("AUTOPILOT_CRON_SECRET or CRON_SECRET must be set in production")
	}

	programming, err := LoadProgramming(cfg.ProgrammingFile)
	if err != nil {
		return nil, err
	}
	cfg.Programming = programming
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// IsDevelopment reports whether the process runs in local development.
func (c *Config) IsDevelopment() bool {
	return c != nil && strings.EqualFold(c.Environment, "development")
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Environment, "production")
}

// HTTPAddr returns the listen address for the API server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use AUTOPILOT_ENV (or GRIMNIR_ENV)",
		"JWT_SIGNING_KEY": "use AUTOPILOT_JWT_SIGNING_KEY (or GRIMNIR_JWT_SIGNING_KEY)",
		"POOL_TARGET":     "use AUTOPILOT_POOL_TARGET",
		"DATABASE_URL":    "use AUTOPILOT_DB_DSN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
