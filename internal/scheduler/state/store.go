/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package state records which station days the daily trigger already fired.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps a claim past the end of its station-local day in every zone.
const DefaultTTL = 48 * time.Hour

// Claims hands out one run per station and air date.
type Claims interface {
	// Claim reports true only for the first caller of a station day.
	Claim(ctx context.Context, stationID, date string) (bool, error)
	// Release forgets a claim so the day can run again.
	Release(ctx context.Context, stationID, date string) error
}

func key(stationID, date string) string {
	return stationID + ":" + date
}

// Store keeps claims in process memory.
type Store struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates an in-memory claim store.
func NewStore() *Store {
	return &Store{claims: make(map[string]time.Time), ttl: DefaultTTL, now: time.Now}
}

// Claim implements Claims.
func (s *Store) Claim(_ context.Context, stationID, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now.Add(-s.ttl))
	k := key(stationID, date)
	if _, ok := s.claims[k]; ok {
		return false, nil
	}
	s.claims[k] = now
	return true, nil
}

// Release implements Claims.
func (s *Store) Release(_ context.Context, stationID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key(stationID, date))
	return nil
}

// Len returns the number of live claims.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *Store) prune(cutoff time.Time) {
	for k, at := range s.claims {
		if at.Before(cutoff) {
			delete(s.claims, k)
		}
	}
}

// RedisStore shares claims between instances so a leadership change inside
// the run hour does not fire a station day twice.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a claim store over client.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "autopilot:daily:", ttl: ttl}
}

// Claim implements Claims.
func (s *RedisStore) Claim(ctx context.Context, stationID, date string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key(stationID, date), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s %s: %w", stationID, date, err)
	}
	return ok, nil
}

// Release implements Claims.
func (s *RedisStore) Release(ctx context.Context, stationID, date string) error {
	if err := s.client.Del(ctx, s.prefix+key(stationID, date)).Err(); err != nil {
		return fmt.Errorf("release %s %s: %w", stationID, date, err)
	}
	return nil
}
