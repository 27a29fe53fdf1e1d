/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Song is a catalog entry.
type Song struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	StationID       string    `gorm:"type:uuid;index;not null" json:"stationId"`
	Title           string    `gorm:"type:varchar(255);index" json:"title"`
	Artist          string    `gorm:"type:varchar(255);index" json:"artist"`
	Genre           string    `gorm:"type:varchar(64)" json:"genre,omitempty"`
	Album           string    `gorm:"type:varchar(255)" json:"album,omitempty"`
	FileURL         string    `gorm:"type:text" json:"fileUrl"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SponsorAd is a sponsor spot and the unit of rotation fairness.
type SponsorAd struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	StationID       string     `gorm:"type:uuid;index;not null" json:"stationId"`
	SponsorName     string     `gorm:"type:varchar(255)" json:"sponsorName"`
	Title           string     `gorm:"type:varchar(255)" json:"title"`
	AudioURL        string     `gorm:"type:text" json:"audioUrl"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
	Weight          int        `gorm:"not null;default:1" json:"weight"`
	PlayCount       int        `gorm:"not null;default:0" json:"playCount"`
	LastPlayedAt    *time.Time `json:"lastPlayedAt,omitempty"`
	Active          bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TransitionType enumerates show transition kinds.
type TransitionType string

const (
	TransitionShowIntro TransitionType = "show_intro"
	TransitionShowOutro TransitionType = "show_outro"
	TransitionHandoff   TransitionType = "handoff"
)

// ShowTransition is intro, outro or handoff audio tied to an hour of day.
// Handoffs are multi-part and grouped by HandoffGroupID.
type ShowTransition struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	StationID       string         `gorm:"type:uuid;index:idx_show_transitions_hour;not null" json:"stationId"`
	DJID            *string        `gorm:"column:dj_id;type:uuid" json:"djId,omitempty"`
	Type            TransitionType `gorm:"type:varchar(16);not null" json:"type"`
	HourOfDay       int            `gorm:"index:idx_show_transitions_hour;not null" json:"hourOfDay"`
	HandoffGroupID  string         `gorm:"type:varchar(64);index" json:"handoffGroupId,omitempty"`
	HandoffPart     int            `json:"handoffPart,omitempty"`
	Priority        int            `gorm:"not null;default:0" json:"priority"`
	ScriptText      string         `gorm:"type:text" json:"scriptText,omitempty"`
	AudioURL        string         `gorm:"type:text" json:"audioUrl"`
	DurationSeconds int            `json:"durationSeconds,omitempty"`
	Active          bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ImagingScript is one imaging clip.
type ImagingScript struct {
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl"`
}

// StationImagingVoice is an imaging library, keyed by slot type.
type StationImagingVoice struct {
	ID        string                     `gorm:"type:uuid;primaryKey" json:"id"`
	StationID string                     `gorm:"type:uuid;index;not null" json:"stationId"`
	VoiceName string                     `gorm:"type:varchar(255)" json:"voiceName"`
	Scripts   map[string][]ImagingScript `gorm:"type:jsonb;serializer:json" json:"scripts"`
	Active    bool                       `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}
