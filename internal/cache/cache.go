/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache for assembled program logs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultProgramLogTTL bounds how stale a served program log may be.
const DefaultProgramLogTTL = time.Minute

// KeyProgramLog prefixes program log keys: + station_id:date:hour
const KeyProgramLog = "autopilot:cache:program_log:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProgramLogTTL time.Duration

	// DisableOnError turns the cache off after the first Redis failure.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ProgramLogTTL:  DefaultProgramLogTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis. An unreachable server yields a disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewWithClient(client, cfg, logger)
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		c.client = nil
		c.disabled = true
		return c
	}

	c.logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return c
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.ProgramLogTTL <= 0 {
		cfg.ProgramLogTTL = DefaultProgramLogTTL
	}
	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}
}

// Disabled returns a cache that always misses.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{logger: logger, config: DefaultConfig(), disabled: true}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) delete(ctx context.Context, keys ...string) error {
	if !c.IsAvailable() {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.delete(ctx, keys...); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ProgramLogKey returns the cache key for one station hour.
func ProgramLogKey(stationID, date string, hour int) string {
	return fmt.Sprintf("%s%s:%s:%d", KeyProgramLog, stationID, date, hour)
}

// GetProgramLog decodes a cached program log into dest.
func (c *Cache) GetProgramLog(ctx context.Context, stationID, date string, hour int, dest any) bool {
	found, err := c.get(ctx, ProgramLogKey(stationID, date, hour), dest)
	return err == nil && found
}

// SetProgramLog stores a program log with the configured TTL.
func (c *Cache) SetProgramLog(ctx context.Context, stationID, date string, hour int, log any) error {
	return c.set(ctx, ProgramLogKey(stationID, date, hour), log, c.config.ProgramLogTTL)
}

// InvalidateProgramLog drops one cached hour.
func (c *Cache) InvalidateProgramLog(ctx context.Context, stationID, date string, hour int) error {
	return c.delete(ctx, ProgramLogKey(stationID, date, hour))
}

// InvalidateStation drops every cached hour of a station.
func (c *Cache) InvalidateStation(ctx context.Context, stationID string) error {
	return c.deletePattern(ctx, KeyProgramLog+stationID+":*")
}
