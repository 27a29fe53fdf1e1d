/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package programlog

import (
	"github.com/friendsincode/grimnir_autopilot/internal/models"
)

// EntryTransition is the entry type for synthetic show transitions.
const EntryTransition = "transition"

// Log is the ordered program of one locked hour.
type Log struct {
	PlaylistID string                `json:"playlistId"`
	StationID  string                `json:"stationId"`
	DJID       string                `json:"djId"`
	AirDate    string                `json:"airDate"`
	HourOfDay  int                   `json:"hourOfDay"`
	Status     models.PlaylistStatus `json:"status"`
	ProgramLog []Entry               `json:"programLog"`
}

// Entry is one line of the program log. At most one payload is set, matching Type.
type Entry struct {
	Position int    `json:"position"`
	Minute   int    `json:"minute"`
	Type     string `json:"type"`
	Category string `json:"category"`

	Song       *Song       `json:"song,omitempty"`
	VoiceTrack *VoiceTrack `json:"voiceTrack,omitempty"`
	Feature    *Feature    `json:"feature,omitempty"`
	Ad         *Ad         `json:"ad,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
	Imaging    *Imaging    `json:"imaging,omitempty"`
}

type Song struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album,omitempty"`
	Genre           string `json:"genre,omitempty"`
	AudioURL        string `json:"audioUrl,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type VoiceTrack struct {
	ID              string                `json:"id"`
	TrackType       models.VoiceTrackType `json:"trackType"`
	ScriptText      string                `json:"scriptText,omitempty"`
	AudioURL        string                `json:"audioUrl"`
	DurationSeconds int                   `json:"durationSeconds,omitempty"`
}

type Feature struct {
	ID            string  `json:"id"`
	FeatureTypeID string  `json:"featureTypeId"`
	Name          string  `json:"name,omitempty"`
	Content       string  `json:"content"`
	RelatedSongID *string `json:"relatedSongId,omitempty"`
	AudioURL      string  `json:"audioUrl,omitempty"`
}

type Ad struct {
	ID              string `json:"id"`
	SponsorName     string `json:"sponsorName"`
	Title           string `json:"title,omitempty"`
	AudioURL        string `json:"audioUrl"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type Transition struct {
	ID              string                `json:"id"`
	Type            models.TransitionType `json:"type"`
	DJID            *string               `json:"djId,omitempty"`
	HandoffGroupID  string                `json:"handoffGroupId,omitempty"`
	HandoffPart     int                   `json:"handoffPart,omitempty"`
	ScriptText      string                `json:"scriptText,omitempty"`
	AudioURL        string                `json:"audioUrl,omitempty"`
	DurationSeconds int                   `json:"durationSeconds,omitempty"`
}

type Imaging struct {
	VoiceName string `json:"voiceName"`
	Text      string `json:"text,omitempty"`
	AudioURL  string `json:"audioUrl"`
}
