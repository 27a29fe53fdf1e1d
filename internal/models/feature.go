/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/slot"
)

// FeatureType is a reusable spoken-segment template.
type FeatureType struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	StationID      string         `gorm:"type:uuid;index;not null" json:"stationId"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	PromptTemplate string         `gorm:"type:text" json:"promptTemplate"`
	TrackPlacement slot.Placement `gorm:"type:varchar(16);not null;default:'none'" json:"trackPlacement"`
	Active         bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// FeatureContent is one generated instance of a feature type for a DJ.
type FeatureContent struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	FeatureTypeID string     `gorm:"type:uuid;index:idx_feature_contents_pool;not null" json:"featureTypeId"`
	DJID          string     `gorm:"column:dj_id;type:uuid;index:idx_feature_contents_pool;not null" json:"djId"`
	Content       string     `gorm:"type:text" json:"content"`
	RelatedSongID *string    `gorm:"type:uuid" json:"relatedSongId,omitempty"`
	IsUsed        bool       `gorm:"not null;default:false;index:idx_feature_contents_pool" json:"isUsed"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	AutoGenerated bool       `gorm:"not null;default:false" json:"autoGenerated"`
	AudioURL      string     `gorm:"type:text" json:"audioUrl,omitempty"`

	FeatureType *FeatureType `gorm:"foreignKey:FeatureTypeID" json:"featureType,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
