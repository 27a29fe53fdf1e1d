/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package featurepool keeps each DJ's pool of unused feature content topped up.
package featurepool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/report"
	"github.com/friendsincode/grimnir_autopilot/internal/slot"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTarget    = 3
	DefaultFreshness = 18 * time.Hour
)

// Config tunes the pool manager.
type Config struct {
	Target    int
	Freshness time.Duration
}

// DJSummary is the per-DJ breakdown of a run.
type DJSummary struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Expired   int `json:"expired,omitempty"`
}

// Summary reports one pool run.
type Summary struct {
	Generated int                   `json:"generated"`
	Skipped   int                   `json:"skipped"`
	Expired   int                   `json:"expired"`
	ByDJ      map[string]*DJSummary `json:"byDj"`
	Errors    []string              `json:"errors"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewSummary returns an empty summary stamped at ts.
func NewSummary(ts time.Time) Summary {
	return Summary{ByDJ: map[string]*DJSummary{}, Errors: []string{}, Timestamp: ts.UTC()}
}

func (s *Summary) dj(name string) *DJSummary {
	d, ok := s.ByDJ[name]
	if !ok {
		d = &DJSummary{}
		s.ByDJ[name] = d
	}
	return d
}

// Merge adds other's counts into s.
func (s *Summary) Merge(other Summary) {
	s.Generated += other.Generated
	s.Skipped += other.Skipped
	s.Expired += other.Expired
	for name, d := range other.ByDJ {
		mine := s.dj(name)
		mine.Generated += d.Generated
		mine.Skipped += d.Skipped
		mine.Expired += d.Expired
	}
	s.Errors = append(s.Errors, other.Errors...)
	if other.Timestamp.After(s.Timestamp) {
		s.Timestamp = other.Timestamp
	}
}

type combo struct {
	dj          models.DJ
	featureType models.FeatureType
}

// Manager is the feature content pool manager.
type Manager struct {
	db        *gorm.DB
	renderer  *Renderer
	target    int
	freshness time.Duration
	logger    zerolog.Logger
}

// NewManager creates a pool manager.
func NewManager(db *gorm.DB, renderer *Renderer, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.Target <= 0 {
		cfg.Target = DefaultTarget
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	return &Manager{
		db:        db,
		renderer:  renderer,
		target:    cfg.Target,
		freshness: cfg.Freshness,
		logger:    logger.With().Str("component", "featurepool").Logger(),
	}
}

// Run expires stale content and tops up every scheduled (DJ, feature type)
// combination for the station. Only store failures outside a single combo
// are returned; per-combo failures land in Summary.Errors.
func (m *Manager) Run(ctx context.Context, sc station.Context) (Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "featurepool.run", attribute.String("station_id", sc.ID()))
	defer span.End()

	now := sc.Now.UTC()
	sum := NewSummary(now)
	logger := m.logger.With().Str("station", sc.ID()).Logger()

	if err := m.expire(ctx, sc, now, &sum); err != nil {
		telemetry.RecordError(span, err)
		return sum, err
	}

	combos, err := m.combos(ctx, sc.ID())
	if err != nil {
		telemetry.RecordError(span, err)
		return sum, err
	}

	var catalog []models.Song
	catalogLoaded := false
	loadCatalog := func() ([]models.Song, error) {
		if catalogLoaded {
			return catalog, nil
		}
		if err := m.db.WithContext(ctx).
			Where("station_id = ? AND active = ?", sc.ID(), true).
			Order("id ASC").
			Find(&catalog).Error; err != nil {
			return nil, fmt.Errorf("failed to load song catalog: %w", err)
		}
		catalogLoaded = true
		return catalog, nil
	}

	for _, c := range combos {
		c := c
		err := report.Protect(func() error {
			return m.topUp(ctx, sc, now, c, loadCatalog, &sum)
		})
		if err == nil {
			continue
		}

		ge := &report.GenerationError{DJ: c.dj.Name, FeatureType: c.featureType.Name, Stage: "generate", Err: err}
		sum.Errors = append(sum.Errors, ge.Error())
		telemetry.GenerationErrorsTotal.WithLabelValues("feature_pool", "generate").Inc()
		logger.Warn().Err(err).
			Str("dj", c.dj.Name).
			Str("feature_type", c.featureType.Name).
			Msg("feature pool top-up failed")
	}

	telemetry.FeatureContentGenerated.WithLabelValues(sc.ID()).Add(float64(sum.Generated))
	telemetry.FeatureContentExpired.WithLabelValues(sc.ID()).Add(float64(sum.Expired))

	logger.Info().
		Int("generated", sum.Generated).
		Int("skipped", sum.Skipped).
		Int("expired", sum.Expired).
		Int("errors", len(sum.Errors)).
		Msg("feature pool run complete")

	return sum, nil
}

// expire retires unused auto-generated content older than the freshness threshold.
func (m *Manager) expire(ctx context.Context, sc station.Context, now time.Time, sum *Summary) error {
	cutoff := now.Add(-m.freshness)
	stationDJs := m.db.Model(&models.DJ{}).Select("id").Where("station_id = ?", sc.ID())

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []models.FeatureContent
		if err := tx.
			Where("is_used = ? AND auto_generated = ? AND created_at < ?", false, true, cutoff).
			Where("dj_id IN (?)", stationDJs).
			Find(&stale).Error; err != nil {
			return fmt.Errorf("failed to find stale feature content: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, len(stale))
		for i, fc := range stale {
			ids[i] = fc.ID
		}

		res := tx.Model(&models.FeatureContent{}).
			Where("id IN ? AND is_used = ?", ids, false).
			Updates(map[string]any{"is_used": true, "used_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to expire feature content: %w", res.Error)
		}

		var djs []models.DJ
		if err := tx.Where("station_id = ?", sc.ID()).Find(&djs).Error; err != nil {
			return fmt.Errorf("failed to load djs: %w", err)
		}
		names := make(map[string]string, len(djs))
		for _, dj := range djs {
			names[dj.ID] = dj.Name
		}

		sum.Expired += int(res.RowsAffected)
		for _, fc := range stale {
			sum.dj(names[fc.DJID]).Expired++
		}
		return nil
	})
}

// combos derives the distinct (DJ, feature type) pairs named by active schedules.
func (m *Manager) combos(ctx context.Context, stationID string) ([]combo, error) {
	var assignments []models.ClockAssignment
	if err := m.db.WithContext(ctx).
		Preload("DJ").
		Preload("ClockTemplate").
		Where("station_id = ? AND active = ?", stationID, true).
		Order("start_hour ASC, id ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load clock assignments: %w", err)
	}

	wanted := map[string]map[string]bool{} // dj id -> feature type ids
	djs := map[string]models.DJ{}
	typeIDs := map[string]bool{}
	for _, a := range assignments {
		if a.DJ == nil || !a.DJ.Active || a.ClockTemplate == nil {
			continue
		}
		for _, s := range a.ClockTemplate.Slots {
			f, ok := s.(slot.Feature)
			if !ok || f.FeatureTypeID == "" {
				continue
			}
			if wanted[a.DJID] == nil {
				wanted[a.DJID] = map[string]bool{}
			}
			wanted[a.DJID][f.FeatureTypeID] = true
			djs[a.DJID] = *a.DJ
			typeIDs[f.FeatureTypeID] = true
		}
	}
	if len(typeIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(typeIDs))
	for id := range typeIDs {
		ids = append(ids, id)
	}
	var types []models.FeatureType
	if err := m.db.WithContext(ctx).
		Where("station_id = ? AND active = ? AND id IN ?", stationID, true, ids).
		Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to load feature types: %w", err)
	}
	byID := make(map[string]models.FeatureType, len(types))
	for _, ft := range types {
		byID[ft.ID] = ft
	}

	var out []combo
	for djID, set := range wanted {
		for typeID := range set {
			ft, ok := byID[typeID]
			if !ok {
				continue
			}
			out = append(out, combo{dj: djs[djID], featureType: ft})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dj.Name != out[j].dj.Name {
			return out[i].dj.Name < out[j].dj.Name
		}
		if out[i].dj.ID != out[j].dj.ID {
			return out[i].dj.ID < out[j].dj.ID
		}
		return out[i].featureType.Name < out[j].featureType.Name
	})
	return out, nil
}

var errNoCatalog = errors.New("no songs available for track-linked feature")

func (m *Manager) topUp(ctx context.Context, sc station.Context, now time.Time, c combo, loadCatalog func() ([]models.Song, error), sum *Summary) error {
	ft := c.featureType
	djSum := sum.dj(c.dj.Name)

	if strings.TrimSpace(ft.PromptTemplate) == "" {
		sum.Skipped++
		djSum.Skipped++
		return nil
	}

	var unused int64
	if err := m.db.WithContext(ctx).Model(&models.FeatureContent{}).
		Where("dj_id = ? AND feature_type_id = ? AND is_used = ?", c.dj.ID, ft.ID, false).
		Count(&unused).Error; err != nil {
		return fmt.Errorf("failed to count unused content: %w", err)
	}

	need := m.target - int(unused)
	if need <= 0 {
		return nil
	}

	var picker *songPicker
	if ft.TrackPlacement.TrackLinked() {
		songs, err := loadCatalog()
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			sum.Skipped++
			djSum.Skipped++
			m.logger.Warn().Err(errNoCatalog).
				Str("station", sc.ID()).
				Str("dj", c.dj.Name).
				Str("feature_type", ft.Name).
				Msg("skipping feature type")
			return nil
		}

		var referenced []string
		if err := m.db.WithContext(ctx).Model(&models.FeatureContent{}).
			Where("feature_type_id = ? AND is_used = ? AND related_song_id IS NOT NULL", ft.ID, false).
			Pluck("related_song_id", &referenced).Error; err != nil {
			return fmt.Errorf("failed to load referenced songs: %w", err)
		}
		picker = newSongPicker(songs, referenced, m.renderer)
	}

	items := make([]models.FeatureContent, 0, need)
	for i := 0; i < need; i++ {
		var song *models.Song
		if picker != nil {
			song = picker.next()
		}

		item := models.FeatureContent{
			ID:            uuid.NewString(),
			FeatureTypeID: ft.ID,
			DJID:          c.dj.ID,
			Content:       m.renderer.Render(ft.PromptTemplate, ValuesFor(sc, c.dj, song)),
			AutoGenerated: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if song != nil {
			id := song.ID
			item.RelatedSongID = &id
		}
		items = append(items, item)
	}

	if err := m.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to store feature content: %w", err)
	}

	sum.Generated += len(items)
	djSum.Generated += len(items)
	return nil
}

// songPicker hands out songs not yet referenced by the pool, then random songs.
type songPicker struct {
	songs []models.Song
	fresh []int
	r     *Renderer
}

func newSongPicker(songs []models.Song, referenced []string, r *Renderer) *songPicker {
	taken := make(map[string]bool, len(referenced))
	for _, id := range referenced {
		taken[id] = true
	}

	p := &songPicker{songs: songs, r: r}
	for i, s := range songs {
		if !taken[s.ID] {
			p.fresh = append(p.fresh, i)
		}
	}
	r.Shuffle(len(p.fresh), func(i, j int) {
		p.fresh[i], p.fresh[j] = p.fresh[j], p.fresh[i]
	})
	return p
}

func (p *songPicker) next() *models.Song {
	if len(p.fresh) > 0 {
		i := p.fresh[0]
		p.fresh = p.fresh[1:]
		return &p.songs[i]
	}
	return &p.songs[p.r.Intn(len(p.songs))]
}
