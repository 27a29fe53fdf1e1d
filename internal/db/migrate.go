/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the autopilot, in dependency order.
func Models() []any {
	return []any{
		&models.Station{},
		&models.DJ{},
		&models.Song{},
		&models.ClockTemplate{},
		&models.ClockAssignment{},
		&models.HourPlaylist{},
		&models.VoiceTrack{},
		&models.GenericVoiceTrack{},
		&models.FeatureType{},
		&models.FeatureContent{},
		&models.SponsorAd{},
		&models.ShowTransition{},
		&models.StationImagingVoice{},
	}
}

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
