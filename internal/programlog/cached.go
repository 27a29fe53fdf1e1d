/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package programlog

import (
	"context"
	"errors"

	"github.com/friendsincode/grimnir_autopilot/internal/cache"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"github.com/rs/zerolog"
)

// Cached serves program logs from Redis, falling back to the wrapped source.
// Only successful assemblies are cached.
type Cached struct {
	inner  Source
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewCached wraps inner with c.
func NewCached(inner Source, c *cache.Cache, logger zerolog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		cache:  c,
		logger: logger.With().Str("component", "programlog_cache").Logger(),
	}
}

// Assemble implements Source.
func (c *Cached) Assemble(ctx context.Context, req Request) (*Log, error) {
	if err := req.Validate(); err != nil {
		telemetry.ProgramLogRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var hit Log
	if c.cache.GetProgramLog(ctx, req.StationID, req.Date, req.Hour, &hit) {
		telemetry.ProgramLogRequestsTotal.WithLabelValues("hit").Inc()
		return &hit, nil
	}

	log, err := c.inner.Assemble(ctx, req)
	switch {
	case errors.Is(err, ErrNotFound):
		telemetry.ProgramLogRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	case err != nil:
		telemetry.ProgramLogRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.ProgramLogRequestsTotal.WithLabelValues("miss").Inc()
	if err := c.cache.SetProgramLog(ctx, req.StationID, req.Date, req.Hour, log); err != nil {
		c.logger.Debug().Err(err).Msg("failed to cache program log")
	}
	return log, nil
}

// Invalidate drops the cached log for one hour.
func (c *Cached) Invalidate(ctx context.Context, stationID, date string, hour int) error {
	return c.cache.InvalidateProgramLog(ctx, stationID, date, hour)
}

// InvalidateStation drops every cached hour of a station.
func (c *Cached) InvalidateStation(ctx context.Context, stationID string) error {
	return c.cache.InvalidateStation(ctx, stationID)
}
