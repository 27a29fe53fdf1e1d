/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects one autopilot instance to fire the in-process
// daily trigger when several replicas share a database.
package leadership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
)

const (
	defaultElectionKey   = "autopilot:leader:daily"
	defaultLeaseDuration = 15 * time.Second
	defaultRetryInterval = 5 * time.Second
	releaseTimeout       = 5 * time.Second
)

// releaseScript deletes the lease only while this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while this instance still owns it.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Config configures the election.
type Config struct {
	// Key is the Redis key holding the current leader's instance ID.
	Key string
	// LeaseDuration is how long a lease stays valid without renewal.
	LeaseDuration time.Duration
	// RetryInterval is how often the lease is acquired or renewed.
	RetryInterval time.Duration
	InstanceID    string
}

// DefaultConfig returns the default election settings with a random instance ID.
func DefaultConfig() Config {
	return Config{
		Key:           defaultElectionKey,
		LeaseDuration: defaultLeaseDuration,
		RetryInterval: defaultRetryInterval,
		InstanceID:    uuid.New().String(),
	}
}

// Election campaigns for a Redis lease.
type Election struct {
	client redis.Cmdable
	cfg    Config
	logger zerolog.Logger

	leader   atomic.Bool
	leaderCh chan bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewElection creates an election over client. The caller owns client.
func NewElection(client redis.Cmdable, cfg Config, logger zerolog.Logger) *Election {
	def := DefaultConfig()
	if cfg.Key == "" {
		cfg.Key = def.Key
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = def.LeaseDuration
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.RetryInterval >= cfg.LeaseDuration {
		cfg.RetryInterval = cfg.LeaseDuration / 3
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = def.InstanceID
	}

	return &Election{
		client:   client,
		cfg:      cfg,
		logger:   logger.With().Str("component", "leader_election").Str("instance_id", cfg.InstanceID).Logger(),
		leaderCh: make(chan bool, 1),
	}
}

// InstanceID returns this instance's identity in the election.
func (e *Election) InstanceID() string {
	return e.cfg.InstanceID
}

// Start campaigns in the background until ctx is cancelled or Stop is called.
func (e *Election) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	e.logger.Info().Dur("lease", e.cfg.LeaseDuration).Msg("starting leader election")
	go e.campaign(ctx, e.done)
}

// Stop ends the campaign and releases the lease if held.
func (e *Election) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if e.leader.Load() {
		ctx, cancelRelease := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancelRelease()
		if err := e.release(ctx); err != nil {
			e.logger.Error().Err(err).Msg("failed to release leadership lease")
		}
		e.setLeader(false)
	}
}

// IsLeader reports whether this instance currently holds the lease.
func (e *Election) IsLeader() bool {
	return e.leader.Load()
}

// LeaderCh delivers leadership changes. Only the latest change is buffered.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// Leader returns the instance ID holding the lease, or "" when none does.
func (e *Election) Leader(ctx context.Context) (string, error) {
	id, err := e.client.Get(ctx, e.cfg.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return id, nil
}

func (e *Election) campaign(ctx context.Context, done chan struct{}) {
	defer close(done)

	e.attempt(ctx)
	ticker := time.NewTicker(e.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.attempt(ctx)
		}
	}
}

func (e *Election) attempt(ctx context.Context) {
	held, err := e.acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn().Err(err).Msg("leadership lease check failed")
		}
		held = false
	}

	switch {
	case held && !e.leader.Load():
		e.logger.Info().Msg("acquired leadership")
	case !held && e.leader.Load():
		e.logger.Warn().Msg("lost leadership")
	}
	e.setLeader(held)
}

// acquire takes the lease if free, or renews it if already owned.
func (e *Election) acquire(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.cfg.Key, e.cfg.InstanceID, e.cfg.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lease: %w", err)
	}
	if ok {
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, e.client, []string{e.cfg.Key}, e.cfg.InstanceID, e.cfg.LeaseDuration.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return renewed == 1, nil
}

func (e *Election) release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, e.client, []string{e.cfg.Key}, e.cfg.InstanceID).Err(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	e.logger.Info().Msg("released leadership lease")
	return nil
}

func (e *Election) setLeader(held bool) {
	if e.leader.Swap(held) == held {
		return
	}

	if held {
		telemetry.LeaderElectionStatus.WithLabelValues(e.cfg.InstanceID).Set(1)
		telemetry.LeaderElectionChanges.WithLabelValues("acquired").Inc()
	} else {
		telemetry.LeaderElectionStatus.WithLabelValues(e.cfg.InstanceID).Set(0)
		telemetry.LeaderElectionChanges.WithLabelValues("lost").Inc()
	}

	// Drop a stale unread value so the receiver sees the latest state.
	select {
	case <-e.leaderCh:
	default:
	}
	select {
	case e.leaderCh <- held:
	default:
	}
}
