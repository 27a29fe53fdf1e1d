/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package station resolves the station a job or request works on and the
// station-local calendar facts derived from it.
package station

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // station zones must resolve on minimal images

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"gorm.io/gorm"
)

// DateLayout is the air date format used everywhere.
const DateLayout = "2006-01-02"

// ErrNoStation is returned when no station record matches.
var ErrNoStation = errors.New("no station configured")

// Context is the explicit station scope threaded through every job.
type Context struct {
	Station  models.Station
	Location *time.Location
	Now      time.Time // station-local
	Date     string    // station-local air date
	DayType  models.DayType
}

// ID returns the station ID.
func (c Context) ID() string {
	return c.Station.ID
}

// DayName returns the station-local weekday name.
func (c Context) DayName() string {
	return c.Now.Weekday().String()
}

// New builds a context for st at instant now.
func New(st models.Station, now time.Time) Context {
	loc := LoadLocation(st.Timezone)
	local := now.In(loc)
	return Context{
		Station:  st,
		Location: loc,
		Now:      local,
		Date:     local.Format(DateLayout),
		DayType:  DayTypeFor(local),
	}
}

// LoadLocation returns the named zone, or UTC when the name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayTypeFor maps a weekday to its schedule day type.
func DayTypeFor(t time.Time) models.DayType {
	switch t.Weekday() {
	case time.Saturday:
		return models.DayTypeSaturday
	case time.Sunday:
		return models.DayTypeSunday
	default:
		return models.DayTypeWeekday
	}
}

// Loader reads stations from the store.
type Loader struct {
	db *gorm.DB
}

// NewLoader creates a station loader.
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

// Load returns the context for one station. An empty id selects the oldest station.
func (l *Loader) Load(ctx context.Context, stationID string, now time.Time) (Context, error) {
	var st models.Station
	q := l.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if stationID != "" {
		q = q.Where("id = ?", stationID)
	}
	if err := q.First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Context{}, ErrNoStation
		}
		return Context{}, fmt.Errorf("failed to load station: %w", err)
	}
	return New(st, now), nil
}

// All returns a context per station, oldest first.
func (l *Loader) All(ctx context.Context, now time.Time) ([]Context, error) {
	var stations []models.Station
	if err := l.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	if len(stations) == 0 {
		return nil, ErrNoStation
	}

	out := make([]Context, 0, len(stations))
	for _, st := range stations {
		out = append(out, New(st, now))
	}
	return out, nil
}

// Select returns the single station named by id, or every station when id is empty.
func (l *Loader) Select(ctx context.Context, stationID string, now time.Time) ([]Context, error) {
	if stationID == "" {
		return l.All(ctx, now)
	}
	sc, err := l.Load(ctx, stationID, now)
	if err != nil {
		return nil, err
	}
	return []Context{sc}, nil
}
