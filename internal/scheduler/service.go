/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler fires the feature pool and daily hours jobs once per
// station day at a configured station-local hour.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/report"
	"github.com/friendsincode/grimnir_autopilot/internal/scheduler/state"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
)

const defaultInterval = 30 * time.Second

// Stations lists every station with its local clock.
type Stations interface {
	All(ctx context.Context, now time.Time) ([]station.Context, error)
}

// Jobs runs the daily jobs for one station.
type Jobs interface {
	FeaturePool(ctx context.Context, stationID string) (featurepool.Summary, error)
	DailyHours(ctx context.Context, stationID string) (orchestrator.Summary, error)
}

// Config configures the trigger.
type Config struct {
	// RunHour is the station-local hour (0-23) the jobs fire in.
	RunHour int
	// Interval is how often stations are checked.
	Interval time.Duration
}

// Service is the in-process daily trigger.
type Service struct {
	stations Stations
	jobs     Jobs
	claims   state.Claims
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// New constructs the trigger. claims defaults to an in-memory store.
func New(stations Stations, jobs Jobs, claims state.Claims, cfg Config, logger zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.RunHour < 0 || cfg.RunHour > 23 {
		cfg.RunHour = 0
	}
	if claims == nil {
		claims = state.NewStore()
	}
	return &Service{
		stations: stations,
		jobs:     jobs,
		claims:   claims,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Due reports whether sc is inside its run hour.
func Due(sc station.Context, runHour int) bool {
	return sc.Now.Hour() == runHour
}

// Run checks stations until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Int("run_hour", s.cfg.RunHour).Dur("interval", s.cfg.Interval).Msg("daily trigger started")
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("daily trigger stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	telemetry.SchedulerTicksTotal.Inc()

	contexts, err := s.stations.All(ctx, s.now())
	if errors.Is(err, station.ErrNoStation) {
		s.logger.Debug().Msg("no stations to trigger")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("daily trigger failed to load stations")
		telemetry.ScheduledRunsTotal.WithLabelValues("load_error").Inc()
		return
	}

	for _, sc := range contexts {
		if ctx.Err() != nil {
			return
		}
		if !Due(sc, s.cfg.RunHour) {
			continue
		}
		ok, err := s.claims.Claim(ctx, sc.ID(), sc.Date)
		if err != nil {
			s.logger.Warn().Err(err).Str("station", sc.ID()).Msg("daily trigger claim failed")
			telemetry.ScheduledRunsTotal.WithLabelValues("claim_error").Inc()
			continue
		}
		if !ok {
			continue
		}
		s.runStation(ctx, sc)
	}
}

// runStation tops up the pool and then builds the day's hours. When both jobs
// fail outright the claim is released so the next tick retries.
func (s *Service) runStation(ctx context.Context, sc station.Context) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler.run_station",
		attribute.String("station_id", sc.ID()),
		attribute.String("air_date", sc.Date),
	)
	defer span.End()

	logger := s.logger.With().Str("station", sc.ID()).Str("date", sc.Date).Logger()
	logger.Info().Msg("daily trigger firing")

	var poolErr, dailyErr error
	if err := report.Protect(func() error {
		pool, err := s.jobs.FeaturePool(ctx, sc.ID())
		if err != nil {
			return err
		}
		logger.Info().Int("generated", pool.Generated).Int("expired", pool.Expired).Int("errors", len(pool.Errors)).Msg("feature pool topped up")
		return nil
	}); err != nil {
		poolErr = err
		logger.Error().Err(err).Msg("feature pool run failed")
	}

	if err := report.Protect(func() error {
		daily, err := s.jobs.DailyHours(ctx, sc.ID())
		if err != nil {
			return err
		}
		logger.Info().Int("hours", daily.HoursProcessed).Int("errors", len(daily.Errors)).Msg("daily hours built")
		return nil
	}); err != nil {
		dailyErr = err
		logger.Error().Err(err).Msg("daily hours run failed")
	}

	switch {
	case poolErr != nil && dailyErr != nil:
		telemetry.RecordError(span, dailyErr)
		telemetry.ScheduledRunsTotal.WithLabelValues("failed").Inc()
		if err := s.claims.Release(ctx, sc.ID(), sc.Date); err != nil {
			logger.Warn().Err(err).Msg("failed to release daily claim")
		}
	case poolErr != nil || dailyErr != nil:
		telemetry.ScheduledRunsTotal.WithLabelValues("partial").Inc()
	default:
		telemetry.ScheduledRunsTotal.WithLabelValues("ok").Inc()
	}
}
