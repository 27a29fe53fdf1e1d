/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package jobs runs the two daily jobs across stations. HTTP triggers, the
// CLI and the in-process scheduler all go through it.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"github.com/rs/zerolog"
)

// Job names used in metrics and logs.
const (
	JobFeaturePool = "feature_pool"
	JobDailyHours  = "daily_hours"
)

// StationSource selects the stations a run covers.
type StationSource interface {
	Select(ctx context.Context, stationID string, now time.Time) ([]station.Context, error)
}

// PoolJob tops up the feature pool for one station.
type PoolJob interface {
	Run(ctx context.Context, sc station.Context) (featurepool.Summary, error)
}

// DailyJob builds and locks one station's hours.
type DailyJob interface {
	Run(ctx context.Context, sc station.Context) (orchestrator.Summary, error)
}

// Runner fans a job out over the selected stations and sums the summaries.
type Runner struct {
	stations StationSource
	pool     PoolJob
	daily    DailyJob
	events   events.Publisher
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRunner creates a runner. pub may be nil.
func NewRunner(stations StationSource, pool PoolJob, daily DailyJob, pub events.Publisher, logger zerolog.Logger) *Runner {
	return &Runner{
		stations: stations,
		pool:     pool,
		daily:    daily,
		events:   pub,
		now:      time.Now,
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
}

// FeaturePool runs the pool job for stationID, or every station when empty.
// station.ErrNoStation is returned when nothing matches.
func (r *Runner) FeaturePool(ctx context.Context, stationID string) (sum featurepool.Summary, err error) {
	now := r.now()
	defer r.observe(JobFeaturePool, now, &err)

	scs, err := r.stations.Select(ctx, stationID, now)
	if err != nil {
		return featurepool.NewSummary(now), err
	}

	sum = featurepool.NewSummary(now)
	for _, sc := range scs {
		one, err := r.pool.Run(ctx, sc)
		if err != nil {
			return sum, fmt.Errorf("feature pool for station %s: %w", sc.ID(), err)
		}
		sum.Merge(one)
	}

	r.publish(events.EventFeaturePoolCompleted, events.Payload{
		"station_id": stationID,
		"stations":   len(scs),
		"generated":  sum.Generated,
		"skipped":    sum.Skipped,
		"expired":    sum.Expired,
		"errors":     len(sum.Errors),
	})
	return sum, nil
}

// DailyHours runs the orchestrator for stationID, or every station when empty.
func (r *Runner) DailyHours(ctx context.Context, stationID string) (sum orchestrator.Summary, err error) {
	now := r.now()
	defer r.observe(JobDailyHours, now, &err)

	scs, err := r.stations.Select(ctx, stationID, now)
	if err != nil {
		return orchestrator.NewSummary(now), err
	}

	sum = orchestrator.NewSummary(now)
	for _, sc := range scs {
		one, err := r.daily.Run(ctx, sc)
		if err != nil {
			return sum, fmt.Errorf("daily hours for station %s: %w", sc.ID(), err)
		}
		sum.Merge(one)
	}

	r.publish(events.EventDailyHoursCompleted, events.Payload{
		"station_id":      stationID,
		"stations":        len(scs),
		"hours_processed": sum.HoursProcessed,
		"playlists_built": sum.PlaylistsBuilt,
		"errors":          len(sum.Errors),
	})
	return sum, nil
}

func (r *Runner) observe(job string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = "error"
		r.logger.Error().Err(*err).Str("job", job).Msg("job failed")
	}
	telemetry.JobRunsTotal.WithLabelValues(job, outcome).Inc()
	telemetry.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (r *Runner) publish(t events.EventType, p events.Payload) {
	if r.events != nil {
		r.events.Publish(t, p)
	}
}
