/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package orchestrator

import (
	"context"

	"github.com/friendsincode/grimnir_autopilot/internal/slot"
)

// BuildRequest asks the playlist builder for one hour.
type BuildRequest struct {
	StationID       string `json:"stationId"`
	DJID            string `json:"djId"`
	ClockTemplateID string `json:"clockTemplateId"`
	Date            string `json:"date"`
	Hour            int    `json:"hour"`
}

// BuildResult identifies the draft playlist the builder stored.
type BuildResult struct {
	HourPlaylistID string    `json:"hourPlaylistId"`
	Slots          slot.List `json:"slots"`
}

// GenerationResult is what the script and audio generators report.
type GenerationResult struct {
	Generated int      `json:"generated"`
	Errors    []string `json:"errors"`
}

// PlaylistBuilder fills a clock template with songs and stores a draft HourPlaylist.
type PlaylistBuilder interface {
	Build(ctx context.Context, req BuildRequest) (BuildResult, error)
}

// ScriptGenerator writes scripts for a playlist's voice breaks, skipping the given positions.
type ScriptGenerator interface {
	Generate(ctx context.Context, hourPlaylistID string, skipPositions []int) (GenerationResult, error)
}

// AudioGenerator renders audio for every script-ready voice track of a playlist.
type AudioGenerator interface {
	Generate(ctx context.Context, hourPlaylistID string) (GenerationResult, error)
}
