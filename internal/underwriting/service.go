/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package underwriting resolves sponsor ads for ad avails and records airings.
package underwriting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrAdNotFound is returned when an ad ID does not exist.
var ErrAdNotFound = errors.New("sponsor ad not found")

// Service reads the ad pool and records airings.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new underwriting service.
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "underwriting").Logger(),
	}
}

// ActiveAds returns the station's rotation pool: active ads with audio, in store order.
func (s *Service) ActiveAds(ctx context.Context, stationID string) ([]models.SponsorAd, error) {
	var ads []models.SponsorAd
	if err := s.db.WithContext(ctx).
		Where("station_id = ? AND active = ? AND audio_url <> ?", stationID, true, "").
		Order("created_at ASC, id ASC").
		Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("failed to load sponsor ads: %w", err)
	}
	return ads, nil
}

// Resolve assigns one ad per position, in position order.
func (s *Service) Resolve(ctx context.Context, stationID string, positions []int) (map[int]models.SponsorAd, error) {
	if len(positions) == 0 {
		return map[int]models.SponsorAd{}, nil
	}
	ads, err := s.ActiveAds(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return Assign(Rank(ads), positions), nil
}

// AdStation returns the station that owns adID.
func (s *Service) AdStation(ctx context.Context, adID string) (string, error) {
	var ads []models.SponsorAd
	if err := s.db.WithContext(ctx).
		Select("id", "station_id").
		Where("id = ?", adID).
		Limit(1).
		Find(&ads).Error; err != nil {
		return "", fmt.Errorf("failed to load sponsor ad: %w", err)
	}
	if len(ads) == 0 {
		return "", ErrAdNotFound
	}
	return ads[0].StationID, nil
}

// MarkAired records that an ad actually played: playCount+1, lastPlayedAt=at.
func (s *Service) MarkAired(ctx context.Context, adID string, at time.Time) (*models.SponsorAd, error) {
	var ad models.SponsorAd
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SponsorAd{}).
			Where("id = ?", adID).
			Updates(map[string]any{
				"play_count":     gorm.Expr("play_count + ?", 1),
				"last_played_at": at.UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark ad aired: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAdNotFound
		}
		return tx.First(&ad, "id = ?", adID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("ad", ad.ID).Int("play_count", ad.PlayCount).Msg("ad aired")
	return &ad, nil
}
