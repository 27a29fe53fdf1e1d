/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Elector reports leadership changes.
type Elector interface {
	Start(ctx context.Context)
	Stop()
	IsLeader() bool
	LeaderCh() <-chan bool
}

// Runnable is a loop that runs until its context ends.
type Runnable interface {
	Run(ctx context.Context) error
}

// LeaderAware runs the trigger only while this instance holds leadership.
type LeaderAware struct {
	inner    Runnable
	election Elector
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewLeaderAware wraps inner with leadership gating.
func NewLeaderAware(inner Runnable, election Elector, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		inner:    inner,
		election: election,
		logger:   logger.With().Str("component", "leader_aware_scheduler").Logger(),
	}
}

// Run campaigns and follows leadership until ctx is cancelled.
func (l *LeaderAware) Run(ctx context.Context) error {
	l.election.Start(ctx)
	defer l.election.Stop()
	defer l.stopInner()

	if l.election.IsLeader() {
		l.startInner(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case leader := <-l.election.LeaderCh():
			if leader {
				l.logger.Info().Msg("became leader, starting daily trigger")
				l.startInner(ctx)
			} else {
				l.logger.Warn().Msg("lost leadership, stopping daily trigger")
				l.stopInner()
			}
		}
	}
}

// Running reports whether the wrapped trigger is active.
func (l *LeaderAware) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *LeaderAware) startInner(parent context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	stopped := make(chan struct{})
	l.cancel, l.stopped = cancel, stopped

	go func() {
		defer close(stopped)
		if err := l.inner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error().Err(err).Msg("daily trigger exited")
		}
	}()
}

func (l *LeaderAware) stopInner() {
	l.mu.Lock()
	cancel, stopped := l.cancel, l.stopped
	l.cancel, l.stopped = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
