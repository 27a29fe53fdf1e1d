/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package imaging picks station imaging clips for sweeper, promo, station ID
// and imaging avails.
package imaging

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/slot"
	"gorm.io/gorm"
)

// FallbackKey is the bucket used when a slot type has no scripts of its own.
const FallbackKey = string(slot.KindSweeper)

// Pick is a resolved imaging clip.
type Pick struct {
	VoiceName string
	Script    models.ImagingScript
}

// Resolver chooses clips at random from the station's imaging library.
type Resolver struct {
	db  *gorm.DB
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver creates an imaging resolver drawing from rng.
func NewResolver(db *gorm.DB, rng *rand.Rand) *Resolver {
	return &Resolver{db: db, rng: rng}
}

// Library loads the station's active imaging voices.
func (r *Resolver) Library(ctx context.Context, stationID string) ([]models.StationImagingVoice, error) {
	var voices []models.StationImagingVoice
	if err := r.db.WithContext(ctx).
		Where("station_id = ? AND active = ?", stationID, true).
		Order("created_at ASC, id ASC").
		Find(&voices).Error; err != nil {
		return nil, fmt.Errorf("failed to load imaging voices: %w", err)
	}
	return voices, nil
}

// Resolve picks a clip for every imaging slot. Slots with nothing to play are absent.
func (r *Resolver) Resolve(ctx context.Context, stationID string, slots []slot.Imaging) (map[int]Pick, error) {
	out := make(map[int]Pick, len(slots))
	if len(slots) == 0 {
		return out, nil
	}
	voices, err := r.Library(ctx, stationID)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if p, ok := r.Choose(voices, string(s.Type)); ok {
			out[s.Position] = p
		}
	}
	return out, nil
}

// Choose picks one playable script under key across all voices, falling back
// to the sweeper bucket.
func (r *Resolver) Choose(voices []models.StationImagingVoice, key string) (Pick, bool) {
	candidates := collect(voices, key)
	if len(candidates) == 0 && key != FallbackKey {
		candidates = collect(voices, FallbackKey)
	}
	if len(candidates) == 0 {
		return Pick{}, false
	}

	r.mu.Lock()
	i := r.rng.Intn(len(candidates))
	r.mu.Unlock()
	return candidates[i], true
}

func collect(voices []models.StationImagingVoice, key string) []Pick {
	var out []Pick
	for _, v := range voices {
		for _, s := range v.Scripts[key] {
			if s.AudioURL == "" {
				continue
			}
			out = append(out, Pick{VoiceName: v.VoiceName, Script: s})
		}
	}
	return out
}
