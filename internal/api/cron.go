/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/friendsincode/grimnir_autopilot/internal/station"
)

// handleFeaturePool tops up the feature content pool.
func (a *API) handleFeaturePool(w http.ResponseWriter, r *http.Request) {
	stationID := strings.TrimSpace(r.URL.Query().Get("station_id"))

	sum, err := a.jobs.FeaturePool(r.Context(), stationID)
	if err != nil {
		a.jobError(w, "feature_pool", stationID, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleDailyHours builds, locks and voices today's hours.
func (a *API) handleDailyHours(w http.ResponseWriter, r *http.Request) {
	stationID := strings.TrimSpace(r.URL.Query().Get("station_id"))

	sum, err := a.jobs.DailyHours(r.Context(), stationID)
	if err != nil {
		a.jobError(w, "daily_hours", stationID, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) jobError(w http.ResponseWriter, job, stationID string, err error) {
	if errors.Is(err, station.ErrNoStation) {
		a.logger.Warn().Str("job", job).Str("station", stationID).Msg("no station for job trigger")
		writeError(w, http.StatusNotFound, "no_station")
		return
	}
	a.logger.Error().Err(err).Str("job", job).Str("station", stationID).Msg("job trigger failed")
	writeError(w, http.StatusInternalServerError, "job_failed")
}
