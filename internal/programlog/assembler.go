/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package programlog assembles the ordered, fully resolved program of a
// locked hour for the streaming engine.
package programlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/imaging"
	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/slot"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"github.com/friendsincode/grimnir_autopilot/internal/transition"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no locked or aired playlist exists for the key.
	ErrNotFound = errors.New("program log not found")
	// ErrInvalidRequest means a required parameter is missing or malformed.
	ErrInvalidRequest = errors.New("invalid program log request")
)

// Request identifies one hour of one station.
type Request struct {
	StationID string
	Date      string
	Hour      int
}

// Validate checks the request parameters.
func (r Request) Validate() error {
	if strings.TrimSpace(r.StationID) == "" {
		return fmt.Errorf("%w: station_id is required", ErrInvalidRequest)
	}
	if _, err := time.Parse(station.DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidRequest)
	}
	return nil
}

// Source assembles program logs.
type Source interface {
	Assemble(ctx context.Context, req Request) (*Log, error)
}

// AdResolver assigns sponsor ads to ad slot positions.
type AdResolver interface {
	Resolve(ctx context.Context, stationID string, positions []int) (map[int]models.SponsorAd, error)
}

// TransitionResolver finds the show transitions of an hour.
type TransitionResolver interface {
	Resolve(ctx context.Context, stationID string, hour int) (transition.Set, error)
}

// ImagingResolver picks imaging clips for imaging slots.
type ImagingResolver interface {
	Resolve(ctx context.Context, stationID string, slots []slot.Imaging) (map[int]imaging.Pick, error)
}

// URLResolver turns stored audio locations into playable URLs.
type URLResolver interface {
	URL(ctx context.Context, location string) string
}

// Deps are the assembler's resolvers. URLs may be nil.
type Deps struct {
	Ads         AdResolver
	Transitions TransitionResolver
	Imaging     ImagingResolver
	URLs        URLResolver
}

// Assembler builds program logs. It only reads.
type Assembler struct {
	db     *gorm.DB
	deps   Deps
	logger zerolog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(db *gorm.DB, deps Deps, logger zerolog.Logger) *Assembler {
	return &Assembler{
		db:     db,
		deps:   deps,
		logger: logger.With().Str("component", "programlog").Logger(),
	}
}

// lookups holds every payload resolved for one hour.
type lookups struct {
	voiceTracks map[int]models.VoiceTrack
	features    map[string]models.FeatureContent
	songs       map[string]models.Song
	ads         map[int]models.SponsorAd
	imaging     map[int]imaging.Pick
	transitions transition.Set
}

// Assemble returns the program log for req.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Log, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "programlog.assemble",
		attribute.String("station_id", req.StationID),
		attribute.String("air_date", req.Date),
		attribute.Int("hour", req.Hour),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.ProgramLogAssemblyDuration.WithLabelValues(req.StationID).Observe(time.Since(start).Seconds())
	}()

	var pl models.HourPlaylist
	err := a.db.WithContext(ctx).
		Where("station_id = ? AND air_date = ? AND hour_of_day = ? AND status IN ?",
			req.StationID, req.Date, req.Hour, []models.PlaylistStatus{models.PlaylistLocked, models.PlaylistAired}).
		Order("locked_at DESC").
		First(&pl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	slots := pl.Slots.Sorted()
	lk, err := a.resolve(ctx, &pl, slots)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := &Log{
		PlaylistID: pl.ID,
		StationID:  pl.StationID,
		DJID:       pl.DJID,
		AirDate:    pl.AirDate,
		HourOfDay:  pl.HourOfDay,
		Status:     pl.Status,
		ProgramLog: a.entries(ctx, slots, lk),
	}

	a.logger.Debug().
		Str("station", req.StationID).
		Str("date", req.Date).
		Int("hour", req.Hour).
		Int("entries", len(log.ProgramLog)).
		Msg("program log assembled")
	return log, nil
}

func (a *Assembler) resolve(ctx context.Context, pl *models.HourPlaylist, slots slot.List) (lookups, error) {
	lk := lookups{
		voiceTracks: map[int]models.VoiceTrack{},
		features:    map[string]models.FeatureContent{},
		songs:       map[string]models.Song{},
	}

	var tracks []models.VoiceTrack
	if err := a.db.WithContext(ctx).
		Where("hour_playlist_id = ? AND status = ?", pl.ID, models.VoiceTrackAudioReady).
		Order("updated_at ASC").
		Find(&tracks).Error; err != nil {
		return lk, fmt.Errorf("failed to load voice tracks: %w", err)
	}
	for _, vt := range tracks {
		lk.voiceTracks[vt.Position] = vt
	}

	var (
		songIDs    []string
		featureIDs []string
		imagingAt  []slot.Imaging
	)
	for _, s := range slots {
		switch v := s.(type) {
		case slot.Song:
			if v.SongID != "" {
				songIDs = append(songIDs, v.SongID)
			}
		case slot.Feature:
			if v.FeatureContentID != "" {
				featureIDs = append(featureIDs, v.FeatureContentID)
			}
		case slot.Imaging:
			imagingAt = append(imagingAt, v)
		}
	}

	if len(songIDs) > 0 {
		var songs []models.Song
		if err := a.db.WithContext(ctx).Where("id IN ?", songIDs).Find(&songs).Error; err != nil {
			return lk, fmt.Errorf("failed to load songs: %w", err)
		}
		for _, s := range songs {
			lk.songs[s.ID] = s
		}
	}

	if len(featureIDs) > 0 {
		var contents []models.FeatureContent
		if err := a.db.WithContext(ctx).Preload("FeatureType").Where("id IN ?", featureIDs).Find(&contents).Error; err != nil {
			return lk, fmt.Errorf("failed to load feature content: %w", err)
		}
		for _, c := range contents {
			lk.features[c.ID] = c
		}
	}

	var err error
	if positions := slots.Positions(slot.IsAdKind); len(positions) > 0 && a.deps.Ads != nil {
		if lk.ads, err = a.deps.Ads.Resolve(ctx, pl.StationID, positions); err != nil {
			return lk, fmt.Errorf("failed to resolve ads: %w", err)
		}
	}
	if len(imagingAt) > 0 && a.deps.Imaging != nil {
		if lk.imaging, err = a.deps.Imaging.Resolve(ctx, pl.StationID, imagingAt); err != nil {
			return lk, fmt.Errorf("failed to resolve imaging: %w", err)
		}
	}
	if a.deps.Transitions != nil {
		if lk.transitions, err = a.deps.Transitions.Resolve(ctx, pl.StationID, pl.HourOfDay); err != nil {
			return lk, fmt.Errorf("failed to resolve transitions: %w", err)
		}
	}
	return lk, nil
}

// entries emits handoff parts, the intro, every stored slot in position
// order and the outro.
func (a *Assembler) entries(ctx context.Context, slots slot.List, lk lookups) []Entry {
	out := make([]Entry, 0, len(slots)+len(lk.transitions.Handoff)+2)

	n := len(lk.transitions.Handoff)
	for i, t := range lk.transitions.Handoff {
		out = append(out, a.transitionEntry(ctx, t, -(n+1)+i, 0))
	}
	if lk.transitions.Intro != nil {
		out = append(out, a.transitionEntry(ctx, *lk.transitions.Intro, -1, 0))
	}

	lastPos, lastMinute := -1, 0
	for _, s := range slots {
		h := s.Header()
		e := Entry{Position: h.Position, Minute: h.Minute, Type: string(h.Type), Category: h.Category}

		switch v := s.(type) {
		case slot.Song:
			if song, ok := lk.songs[v.SongID]; ok {
				e.Song = &Song{
					ID:              song.ID,
					Title:           song.Title,
					Artist:          song.Artist,
					Album:           song.Album,
					Genre:           song.Genre,
					AudioURL:        a.url(ctx, song.FileURL),
					DurationSeconds: song.DurationSeconds,
				}
			}
		case slot.VoiceBreak:
			if vt, ok := lk.voiceTracks[h.Position]; ok {
				e.VoiceTrack = &VoiceTrack{
					ID:              vt.ID,
					TrackType:       vt.TrackType,
					ScriptText:      vt.ScriptText,
					AudioURL:        a.url(ctx, vt.AudioURL),
					DurationSeconds: vt.DurationSeconds,
				}
			}
		case slot.Feature:
			if fc, ok := lk.features[v.FeatureContentID]; ok {
				f := &Feature{
					ID:            fc.ID,
					FeatureTypeID: fc.FeatureTypeID,
					Content:       fc.Content,
					RelatedSongID: fc.RelatedSongID,
					AudioURL:      a.url(ctx, fc.AudioURL),
				}
				if fc.FeatureType != nil {
					f.Name = fc.FeatureType.Name
				}
				e.Feature = f
			}
		case slot.Ad:
			if ad, ok := lk.ads[h.Position]; ok {
				e.Ad = &Ad{
					ID:              ad.ID,
					SponsorName:     ad.SponsorName,
					Title:           ad.Title,
					AudioURL:        a.url(ctx, ad.AudioURL),
					DurationSeconds: ad.DurationSeconds,
				}
			}
		case slot.Imaging:
			if pick, ok := lk.imaging[h.Position]; ok {
				e.Imaging = &Imaging{
					VoiceName: pick.VoiceName,
					Text:      pick.Script.Text,
					AudioURL:  a.url(ctx, pick.Script.AudioURL),
				}
			}
		}

		out = append(out, e)
		if h.Position > lastPos {
			lastPos, lastMinute = h.Position, h.Minute
		}
	}

	if lk.transitions.Outro != nil {
		out = append(out, a.transitionEntry(ctx, *lk.transitions.Outro, lastPos+1, lastMinute))
	}
	return out
}

func (a *Assembler) transitionEntry(ctx context.Context, t models.ShowTransition, position, minute int) Entry {
	return Entry{
		Position: position,
		Minute:   minute,
		Type:     EntryTransition,
		Category: string(t.Type),
		Transition: &Transition{
			ID:              t.ID,
			Type:            t.Type,
			DJID:            t.DJID,
			HandoffGroupID:  t.HandoffGroupID,
			HandoffPart:     t.HandoffPart,
			ScriptText:      t.ScriptText,
			AudioURL:        a.url(ctx, t.AudioURL),
			DurationSeconds: t.DurationSeconds,
		},
	}
}

func (a *Assembler) url(ctx context.Context, location string) string {
	if a.deps.URLs == nil {
		return location
	}
	return a.deps.URLs.URL(ctx, location)
}
