/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/slot"
)

// DayType selects which days a clock assignment covers.
type DayType string

const (
	DayTypeWeekday  DayType = "weekday"
	DayTypeSaturday DayType = "saturday"
	DayTypeSunday   DayType = "sunday"
	DayTypeAll      DayType = "all"
)

// ClockTemplate is the slot blueprint for one hour type.
type ClockTemplate struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	StationID string    `gorm:"type:uuid;index;not null" json:"stationId"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Slots     slot.List `gorm:"type:jsonb;serializer:json" json:"slots"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClockAssignment puts a DJ and clock template on air for a range of hours.
// EndHour is exclusive; a range with EndHour <= StartHour wraps past midnight.
type ClockAssignment struct {
	ID              string  `gorm:"type:uuid;primaryKey" json:"id"`
	StationID       string  `gorm:"type:uuid;index;not null" json:"stationId"`
	DJID            string  `gorm:"column:dj_id;type:uuid;index;not null" json:"djId"`
	ClockTemplateID string  `gorm:"type:uuid;not null" json:"clockTemplateId"`
	DayType         DayType `gorm:"type:varchar(16);not null" json:"dayType"`
	StartHour       int     `gorm:"not null" json:"startHour"`
	EndHour         int     `gorm:"not null" json:"endHour"`
	Active          bool    `gorm:"not null;default:true" json:"active"`

	DJ            *DJ            `gorm:"foreignKey:DJID" json:"dj,omitempty"`
	ClockTemplate *ClockTemplate `gorm:"foreignKey:ClockTemplateID" json:"clockTemplate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Hours expands the assignment into broadcast hours of one air date.
func (a ClockAssignment) Hours() []int {
	start, end := a.StartHour, a.EndHour
	if start < 0 || start > 23 {
		start = 0
	}
	if end < 0 || end > 24 {
		end = 24
	}

	var hours []int
	if start < end {
		for h := start; h < end; h++ {
			hours = append(hours, h)
		}
		return hours
	}
	for h := start; h < 24; h++ {
		hours = append(hours, h)
	}
	for h := 0; h < end; h++ {
		hours = append(hours, h)
	}
	return hours
}

// PlaylistStatus is the hour playlist lifecycle.
type PlaylistStatus string

const (
	PlaylistDraft  PlaylistStatus = "draft"
	PlaylistLocked PlaylistStatus = "locked"
	PlaylistAired  PlaylistStatus = "aired"
)

// HourPlaylist is one materialised clock hour for a station, date and hour.
type HourPlaylist struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	StationID       string         `gorm:"type:uuid;index:idx_hour_playlists_key;not null" json:"stationId"`
	DJID            string         `gorm:"column:dj_id;type:uuid;index" json:"djId"`
	ClockTemplateID string         `gorm:"type:uuid" json:"clockTemplateId"`
	AirDate         string         `gorm:"type:varchar(10);index:idx_hour_playlists_key;not null" json:"airDate"`
	HourOfDay       int            `gorm:"index:idx_hour_playlists_key;not null" json:"hourOfDay"`
	Status          PlaylistStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	Slots           slot.List      `gorm:"type:jsonb;serializer:json" json:"slots"`
	LockedAt        *time.Time     `json:"lockedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Readable reports whether the assembler may read this playlist.
func (p HourPlaylist) Readable() bool {
	return p.Status == PlaylistLocked || p.Status == PlaylistAired
}

// VoiceTrackStatus is the voice track lifecycle.
type VoiceTrackStatus string

const (
	VoiceTrackQueued      VoiceTrackStatus = "queued"
	VoiceTrackScriptReady VoiceTrackStatus = "script_ready"
	VoiceTrackAudioReady  VoiceTrackStatus = "audio_ready"
)

// VoiceTrackType distinguishes fresh AI segments from pre-recorded fallbacks.
type VoiceTrackType string

const (
	VoiceTrackAI      VoiceTrackType = "ai"
	VoiceTrackGeneric VoiceTrackType = "generic"
)

// VoiceTrack is one spoken segment at a playlist position.
type VoiceTrack struct {
	ID                  string           `gorm:"type:uuid;primaryKey" json:"id"`
	HourPlaylistID      string           `gorm:"type:uuid;index;not null" json:"hourPlaylistId"`
	Position            int              `gorm:"not null" json:"position"`
	Status              VoiceTrackStatus `gorm:"type:varchar(16);not null;default:'queued'" json:"status"`
	TrackType           VoiceTrackType   `gorm:"type:varchar(16);not null;default:'ai'" json:"trackType"`
	ScriptText          string           `gorm:"type:text" json:"scriptText,omitempty"`
	AudioURL            string           `gorm:"type:text" json:"audioUrl,omitempty"`
	DurationSeconds     int              `json:"durationSeconds,omitempty"`
	GenericVoiceTrackID *string          `gorm:"type:uuid" json:"genericVoiceTrackId,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// GenericVoiceTrack is a pre-recorded fallback segment for a DJ.
type GenericVoiceTrack struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	DJID            string     `gorm:"column:dj_id;type:uuid;index;not null" json:"djId"`
	Name            string     `gorm:"type:varchar(255)" json:"name"`
	ScriptText      string     `gorm:"type:text" json:"scriptText,omitempty"`
	AudioURL        string     `gorm:"type:text;not null" json:"audioUrl"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
	Active          bool       `gorm:"not null;default:true" json:"active"`
	UseCount        int        `gorm:"not null;default:0" json:"useCount"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
