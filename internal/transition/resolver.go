/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transition resolves show intros, outros and DJ handoffs around
// shift boundaries.
package transition

import (
	"context"
	"errors"
	"fmt"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"gorm.io/gorm"
)

// Hours configures which hours open a shift and which open with a handoff.
type Hours struct {
	ShiftStarts []int
	Handoffs    []int
}

// DefaultHours returns the built-in shift layout.
func DefaultHours() Hours {
	return Hours{
		ShiftStarts: []int{6, 10, 15, 19},
		Handoffs:    []int{10, 15, 19},
	}
}

// Set is the transitions that frame one hour. Any field may be empty.
type Set struct {
	Handoff []models.ShowTransition // ordered by part
	Intro   *models.ShowTransition
	Outro   *models.ShowTransition
}

// Empty reports whether the hour has no transitions.
func (s Set) Empty() bool {
	return len(s.Handoff) == 0 && s.Intro == nil && s.Outro == nil
}

// Resolver looks up transitions for a station hour.
type Resolver struct {
	db          *gorm.DB
	shiftStarts map[int]bool
	handoffs    map[int]bool
}

// NewResolver creates a transition resolver.
func NewResolver(db *gorm.DB, hours Hours) *Resolver {
	r := &Resolver{db: db, shiftStarts: map[int]bool{}, handoffs: map[int]bool{}}
	for _, h := range hours.ShiftStarts {
		r.shiftStarts[h] = true
	}
	for _, h := range hours.Handoffs {
		r.handoffs[h] = true
	}
	return r
}

// IsShiftStart reports whether hour opens a shift.
func (r *Resolver) IsShiftStart(hour int) bool {
	return r.shiftStarts[hour]
}

// PrecedesShiftStart reports whether the next hour opens a shift.
func (r *Resolver) PrecedesShiftStart(hour int) bool {
	return r.shiftStarts[(hour+1)%24]
}

// Resolve returns the transitions for stationID at hour. Missing transitions
// are not an error.
func (r *Resolver) Resolve(ctx context.Context, stationID string, hour int) (Set, error) {
	var set Set

	if r.IsShiftStart(hour) {
		intro, err := r.top(ctx, stationID, hour, models.TransitionShowIntro)
		if err != nil {
			return Set{}, err
		}
		set.Intro = intro

		if r.handoffs[hour] {
			parts, err := r.handoffGroup(ctx, stationID, hour)
			if err != nil {
				return Set{}, err
			}
			set.Handoff = parts
		}
	}

	if r.PrecedesShiftStart(hour) {
		outro, err := r.top(ctx, stationID, hour, models.TransitionShowOutro)
		if err != nil {
			return Set{}, err
		}
		set.Outro = outro
	}

	return set, nil
}

func (r *Resolver) scope(ctx context.Context, stationID string, hour int, kind models.TransitionType) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("station_id = ? AND hour_of_day = ? AND type = ? AND active = ?", stationID, hour, kind, true)
}

// top returns the highest-priority active transition of kind at hour.
func (r *Resolver) top(ctx context.Context, stationID string, hour int, kind models.TransitionType) (*models.ShowTransition, error) {
	var t models.ShowTransition
	err := r.scope(ctx, stationID, hour, kind).
		Order("priority DESC, created_at ASC, id ASC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s transition: %w", kind, err)
	}
	return &t, nil
}

// handoffGroup returns every part of the leading handoff group at hour.
func (r *Resolver) handoffGroup(ctx context.Context, stationID string, hour int) ([]models.ShowTransition, error) {
	lead, err := r.top(ctx, stationID, hour, models.TransitionHandoff)
	if err != nil || lead == nil {
		return nil, err
	}
	if lead.HandoffGroupID == "" {
		return []models.ShowTransition{*lead}, nil
	}

	var parts []models.ShowTransition
	if err := r.scope(ctx, stationID, hour, models.TransitionHandoff).
		Where("handoff_group_id = ?", lead.HandoffGroupID).
		Order("handoff_part ASC, id ASC").
		Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to load handoff group: %w", err)
	}
	return parts, nil
}
