/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/friendsincode/grimnir_autopilot/internal/auth"
	"github.com/friendsincode/grimnir_autopilot/internal/programlog"
)

// handleProgramLog returns the assembled program of one locked hour.
func (a *API) handleProgramLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stationID := strings.TrimSpace(q.Get("station_id"))
	date := strings.TrimSpace(q.Get("date"))
	hourRaw := strings.TrimSpace(q.Get("hour"))

	if stationID == "" || date == "" || hourRaw == "" {
		writeError(w, http.StatusBadRequest, "station_id, date and hour are required")
		return
	}
	hour, err := strconv.Atoi(hourRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_hour")
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && !claims.CanAccessStation(stationID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	log, err := a.programLog.Assemble(r.Context(), programlog.Request{StationID: stationID, Date: date, Hour: hour})
	switch {
	case errors.Is(err, programlog.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, programlog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
		return
	case err != nil:
		a.logger.Error().Err(err).
			Str("station", stationID).
			Str("date", date).
			Int("hour", hour).
			Msg("program log assembly failed")
		writeError(w, http.StatusInternalServerError, "assembly_failed")
		return
	}

	writeJSON(w, http.StatusOK, log)
}
