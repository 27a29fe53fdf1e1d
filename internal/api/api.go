/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_autopilot/internal/auth"
	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/programlog"
	"github.com/friendsincode/grimnir_autopilot/internal/version"
)

// JobRunner runs the daily jobs for one station or all of them.
type JobRunner interface {
	FeaturePool(ctx context.Context, stationID string) (featurepool.Summary, error)
	DailyHours(ctx context.Context, stationID string) (orchestrator.Summary, error)
}

// AdMarker records that a sponsor ad went to air.
type AdMarker interface {
	AdStation(ctx context.Context, adID string) (string, error)
	MarkAired(ctx context.Context, adID string, at time.Time) (*models.SponsorAd, error)
}

// Config holds the credentials the API checks.
type Config struct {
	JWTSecret  []byte
	CronSecret string
	// Development lets the daily-hours trigger run when no cron secret is set.
	Development bool
}

// API exposes HTTP handlers.
type API struct {
	cfg        Config
	jobs       JobRunner
	programLog programlog.Source
	ads        AdMarker
	bus        events.Publisher
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates the API router wrapper. bus may be nil.
func New(cfg Config, jobs JobRunner, programLog programlog.Source, ads AdMarker, bus events.Publisher, logger zerolog.Logger) *API {
	return &API{
		cfg:        cfg,
		jobs:       jobs,
		programLog: programLog,
		ads:        ads,
		bus:        bus,
		now:        time.Now,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all HTTP routes on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/cron", func(r chi.Router) {
			pool := r.With(auth.CronSecret(a.cfg.CronSecret, false, a.logger))
			pool.Get("/feature-pool", a.handleFeaturePool)
			pool.Post("/feature-pool", a.handleFeaturePool)

			daily := r.With(auth.CronSecret(a.cfg.CronSecret, a.cfg.Development, a.logger))
			daily.Get("/daily-hours", a.handleDailyHours)
			daily.Post("/daily-hours", a.handleDailyHours)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Session(a.cfg.JWTSecret))

			pr.Get("/program-log", a.handleProgramLog)
			pr.Post("/ads/{adID}/aired", a.handleAdAired)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (a *API) publish(t events.EventType, p events.Payload) {
	if a.bus != nil {
		a.bus.Publish(t, p)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
