/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// Station scopes every other record.
type Station struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	Timezone  string    `gorm:"type:varchar(64)" json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DJ is an on-air personality.
type DJ struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	StationID string    `gorm:"type:uuid;index;not null" json:"stationId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (DJ) TableName() string {
	return "djs"
}

// FirstName returns the first word of the DJ's on-air name.
func (d DJ) FirstName() string {
	fields := strings.Fields(d.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
