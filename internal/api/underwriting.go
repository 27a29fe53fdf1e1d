/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grimnir_autopilot/internal/auth"
	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/underwriting"
)

// handleAdAired records one airing of a sponsor ad for a session allowed on
// the ad's station. The optional body
// {"airedAt": RFC3339} backdates the airing; the default is now.
func (a *API) handleAdAired(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "adID")
	if adID == "" {
		writeError(w, http.StatusBadRequest, "ad_id required")
		return
	}

	stationID, err := a.ads.AdStation(r.Context(), adID)
	if errors.Is(err, underwriting.ErrAdNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("ad", adID).Msg("load ad station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && !claims.CanAccessStation(stationID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	at := a.now()
	if r.ContentLength != 0 {
		var req struct {
			AiredAt *time.Time `json:"airedAt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.AiredAt != nil {
			at = *req.AiredAt
		}
	}

	ad, err := a.ads.MarkAired(r.Context(), adID, at)
	if errors.Is(err, underwriting.ErrAdNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("ad", adID).Msg("mark ad aired failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publish(events.EventAdAired, events.Payload{
		"station_id": ad.StationID,
		"ad_id":      ad.ID,
		"play_count": ad.PlayCount,
		"aired_at":   at.UTC(),
	})
	writeJSON(w, http.StatusOK, ad)
}
