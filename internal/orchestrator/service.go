/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package orchestrator builds, locks and voices every scheduled hour of the day.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
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

// ErrPlaylistAired is returned for hours that already went to air.
var ErrPlaylistAired = errors.New("playlist already aired")

// Summary reports one daily run.
type Summary struct {
	HoursProcessed    int       `json:"hoursProcessed"`
	PlaylistsBuilt    int       `json:"playlistsBuilt"`
	ScriptsGenerated  int       `json:"scriptsGenerated"`
	AudioGenerated    int       `json:"audioGenerated"`
	GenericTracksUsed int       `json:"genericTracksUsed"`
	FeaturesRelinked  int       `json:"featuresRelinked"`
	Errors            []string  `json:"errors"`
	Message           string    `json:"message,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewSummary returns an empty summary stamped at ts.
func NewSummary(ts time.Time) Summary {
	return Summary{Errors: []string{}, Timestamp: ts.UTC()}
}

// Merge adds other's counts into s.
func (s *Summary) Merge(other Summary) {
	s.HoursProcessed += other.HoursProcessed
	s.PlaylistsBuilt += other.PlaylistsBuilt
	s.ScriptsGenerated += other.ScriptsGenerated
	s.AudioGenerated += other.AudioGenerated
	s.GenericTracksUsed += other.GenericTracksUsed
	s.FeaturesRelinked += other.FeaturesRelinked
	s.Errors = append(s.Errors, other.Errors...)
	if other.Message != "" {
		if s.Message == "" {
			s.Message = other.Message
		} else {
			s.Message += "; " + other.Message
		}
	}
	if other.Timestamp.After(s.Timestamp) {
		s.Timestamp = other.Timestamp
	}
}

// Deps are the orchestrator's collaborators. Events may be nil.
type Deps struct {
	Builder  PlaylistBuilder
	Scripts  ScriptGenerator
	Audio    AudioGenerator
	Renderer *featurepool.Renderer
	Events   events.Publisher
}

// Service is the daily hour orchestrator.
type Service struct {
	db     *gorm.DB
	deps   Deps
	logger zerolog.Logger
}

// NewService creates the orchestrator.
func NewService(db *gorm.DB, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		deps:   deps,
		logger: logger.With().Str("component", "orchestrator").Logger(),
	}
}

type hourJob struct {
	assignment models.ClockAssignment
	dj         models.DJ
	hour       int
}

// stageError tags a failure with the step of the hour that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stage(name string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: name, err: err}
}

// Run processes every scheduled hour of the station's current air date.
// Each hour is isolated: its failure is recorded in Summary.Errors and the
// run moves on. Only a failure to read the schedule is returned.
func (s *Service) Run(ctx context.Context, sc station.Context) (Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run",
		attribute.String("station_id", sc.ID()),
		attribute.String("air_date", sc.Date),
	)
	defer span.End()

	sum := NewSummary(sc.Now)
	logger := s.logger.With().Str("station", sc.ID()).Str("date", sc.Date).Logger()

	jobs, skipped, err := s.jobs(ctx, sc)
	if err != nil {
		telemetry.RecordError(span, err)
		return sum, err
	}
	sum.Errors = append(sum.Errors, skipped...)
	if len(jobs) == 0 {
		sum.Message = fmt.Sprintf("no active clock assignments for %s (%s)", sc.Date, sc.DayType)
		logger.Info().Str("day_type", string(sc.DayType)).Msg("nothing scheduled today")
		return sum, nil
	}

	for _, j := range jobs {
		j := j
		err := report.Protect(func() error {
			return s.processHour(ctx, sc, j, &sum)
		})
		if err == nil {
			sum.HoursProcessed++
			continue
		}

		stageName := "hour"
		var se *stageError
		if errors.As(err, &se) {
			stageName = se.stage
		}
		ge := &report.GenerationError{DJ: j.dj.Name, Hour: report.Hour(j.hour), Stage: stageName, Err: err}
		sum.Errors = append(sum.Errors, ge.Error())
		telemetry.GenerationErrorsTotal.WithLabelValues("daily_hours", stageName).Inc()
		logger.Warn().Err(err).
			Str("dj", j.dj.Name).
			Int("hour", j.hour).
			Str("stage", stageName).
			Msg("hour failed")
	}

	telemetry.HoursLocked.WithLabelValues(sc.ID()).Add(float64(sum.PlaylistsBuilt))
	telemetry.GenericTracksUsed.WithLabelValues(sc.ID()).Add(float64(sum.GenericTracksUsed))

	logger.Info().
		Int("hours_processed", sum.HoursProcessed).
		Int("playlists_built", sum.PlaylistsBuilt).
		Int("scripts_generated", sum.ScriptsGenerated).
		Int("audio_generated", sum.AudioGenerated).
		Int("generic_tracks_used", sum.GenericTracksUsed).
		Int("features_relinked", sum.FeaturesRelinked).
		Int("errors", len(sum.Errors)).
		Msg("daily hour run complete")

	return sum, nil
}

// jobs expands today's assignments into hours. An hour claimed by two
// assignments goes to the earlier one; the other claim is reported.
func (s *Service) jobs(ctx context.Context, sc station.Context) ([]hourJob, []string, error) {
	var assignments []models.ClockAssignment
	if err := s.db.WithContext(ctx).
		Preload("DJ").
		Where("station_id = ? AND active = ? AND day_type IN ?", sc.ID(), true,
			[]models.DayType{sc.DayType, models.DayTypeAll}).
		Order("start_hour ASC, id ASC").
		Find(&assignments).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load clock assignments: %w", err)
	}

	var (
		jobs    []hourJob
		skipped []string
		claimed = map[int]string{}
	)
	for _, a := range assignments {
		if a.DJ == nil || !a.DJ.Active {
			continue
		}
		for _, h := range a.Hours() {
			if owner, ok := claimed[h]; ok {
				skipped = append(skipped, (&report.GenerationError{
					DJ:    a.DJ.Name,
					Hour:  report.Hour(h),
					Stage: "schedule",
					Err:   fmt.Errorf("hour already assigned to %s", owner),
				}).Error())
				continue
			}
			claimed[h] = a.DJ.Name
			jobs = append(jobs, hourJob{assignment: a, dj: *a.DJ, hour: h})
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].hour < jobs[j].hour })
	return jobs, skipped, nil
}

func (s *Service) processHour(ctx context.Context, sc station.Context, j hourJob, sum *Summary) error {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.hour",
		attribute.String("dj", j.dj.Name),
		attribute.Int("hour", j.hour),
	)
	defer span.End()

	now := sc.Now.UTC()

	built, err := s.deps.Builder.Build(ctx, BuildRequest{
		StationID:       sc.ID(),
		DJID:            j.dj.ID,
		ClockTemplateID: j.assignment.ClockTemplateID,
		Date:            sc.Date,
		Hour:            j.hour,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return stage("build", err)
	}

	pl, err := s.lock(ctx, built, j, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return stage("lock", err)
	}
	sum.PlaylistsBuilt++

	satisfied, used, err := s.substituteGeneric(ctx, pl, j.dj.ID, now)
	if err != nil {
		return stage("generic", err)
	}
	if used {
		sum.GenericTracksUsed++
	}

	var skip []int
	if satisfied != nil {
		skip = []int{*satisfied}
	}
	scripts, err := s.deps.Scripts.Generate(ctx, pl.ID, skip)
	if err != nil {
		return stage("script", err)
	}
	sum.ScriptsGenerated += scripts.Generated
	s.collect(sum, j, "script", scripts.Errors)

	audio, err := s.deps.Audio.Generate(ctx, pl.ID)
	if err != nil {
		return stage("audio", err)
	}
	sum.AudioGenerated += audio.Generated
	s.collect(sum, j, "audio", audio.Errors)

	relinked, err := s.relink(ctx, sc, pl, j.dj, now)
	if err != nil {
		return stage("relink", err)
	}
	sum.FeaturesRelinked += relinked

	if s.deps.Events != nil {
		s.deps.Events.Publish(events.EventPlaylistLocked, events.Payload{
			"station_id":  sc.ID(),
			"playlist_id": pl.ID,
			"dj_id":       j.dj.ID,
			"date":        sc.Date,
			"hour":        j.hour,
		})
	}
	return nil
}

// collect folds collaborator-reported partial failures into the summary.
func (s *Service) collect(sum *Summary, j hourJob, stageName string, errs []string) {
	for _, msg := range errs {
		if strings.TrimSpace(msg) == "" {
			continue
		}
		ge := &report.GenerationError{DJ: j.dj.Name, Hour: report.Hour(j.hour), Stage: stageName, Err: errors.New(msg)}
		sum.Errors = append(sum.Errors, ge.Error())
		telemetry.GenerationErrorsTotal.WithLabelValues("daily_hours", stageName).Inc()
	}
}

// lock moves the built playlist to locked.
func (s *Service) lock(ctx context.Context, built BuildResult, j hourJob, now time.Time) (*models.HourPlaylist, error) {
	if built.HourPlaylistID == "" {
		return nil, errors.New("builder returned no playlist id")
	}

	var pl models.HourPlaylist
	if err := s.db.WithContext(ctx).First(&pl, "id = ?", built.HourPlaylistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("built playlist %s not found", built.HourPlaylistID)
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}
	if pl.Status == models.PlaylistAired {
		return nil, ErrPlaylistAired
	}
	if len(pl.Slots) == 0 && len(built.Slots) > 0 {
		pl.Slots = built.Slots
	}

	updates := map[string]any{
		"status":    models.PlaylistLocked,
		"locked_at": now,
		"slots":     pl.Slots,
	}
	if pl.DJID == "" {
		updates["dj_id"] = j.dj.ID
		pl.DJID = j.dj.ID
	}
	if pl.ClockTemplateID == "" {
		updates["clock_template_id"] = j.assignment.ClockTemplateID
		pl.ClockTemplateID = j.assignment.ClockTemplateID
	}
	if err := s.db.WithContext(ctx).Model(&models.HourPlaylist{}).Where("id = ?", pl.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to lock playlist: %w", err)
	}

	pl.Status = models.PlaylistLocked
	pl.LockedAt = &now
	return &pl, nil
}

// substituteGeneric voices the hour's last voice break from the DJ's least
// recently used generic track. It returns the satisfied position, if any, and
// whether a generic track was consumed.
func (s *Service) substituteGeneric(ctx context.Context, pl *models.HourPlaylist, djID string, now time.Time) (*int, bool, error) {
	idx, ok := pl.Slots.LastOfKind(slot.KindVoiceBreak)
	if !ok {
		return nil, false, nil
	}
	pos := pl.Slots[idx].Header().Position

	var tracks []models.VoiceTrack
	if err := s.db.WithContext(ctx).
		Where("hour_playlist_id = ? AND position = ?", pl.ID, pos).
		Limit(1).
		Find(&tracks).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load voice track: %w", err)
	}
	found := len(tracks) > 0
	var existing models.VoiceTrack
	if found {
		existing = tracks[0]
	}
	if found && existing.Status == models.VoiceTrackAudioReady {
		return &pos, false, nil
	}

	var generics []models.GenericVoiceTrack
	if err := s.db.WithContext(ctx).
		Where("dj_id = ? AND active = ? AND audio_url <> ?", djID, true, "").
		Order("CASE WHEN last_used_at IS NULL THEN 0 ELSE 1 END").
		Order("last_used_at ASC").
		Order("use_count ASC").
		Order("id ASC").
		Limit(1).
		Find(&generics).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load generic voice track: %w", err)
	}
	if len(generics) == 0 {
		return nil, false, nil
	}
	generic := generics[0]

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genericID := generic.ID
		fields := map[string]any{
			"status":                 models.VoiceTrackAudioReady,
			"track_type":             models.VoiceTrackGeneric,
			"script_text":            generic.ScriptText,
			"audio_url":              generic.AudioURL,
			"duration_seconds":       generic.DurationSeconds,
			"generic_voice_track_id": genericID,
		}
		if found {
			if err := tx.Model(&models.VoiceTrack{}).Where("id = ?", existing.ID).Updates(fields).Error; err != nil {
				return fmt.Errorf("failed to update voice track: %w", err)
			}
		} else {
			vt := models.VoiceTrack{
				ID:                  uuid.NewString(),
				HourPlaylistID:      pl.ID,
				Position:            pos,
				Status:              models.VoiceTrackAudioReady,
				TrackType:           models.VoiceTrackGeneric,
				ScriptText:          generic.ScriptText,
				AudioURL:            generic.AudioURL,
				DurationSeconds:     generic.DurationSeconds,
				GenericVoiceTrackID: &genericID,
			}
			if err := tx.Create(&vt).Error; err != nil {
				return fmt.Errorf("failed to create voice track: %w", err)
			}
		}

		return tx.Model(&models.GenericVoiceTrack{}).
			Where("id = ?", generic.ID).
			Updates(map[string]any{
				"use_count":    gorm.Expr("use_count + ?", 1),
				"last_used_at": now,
			}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &pos, true, nil
}

// relink points every feature slot at content about the song actually
// adjacent to it. A slot keeps content it already consumed when that content
// still matches; an unused item the builder referenced is claimed and
// rewritten; anything else is replaced from the pool.
func (s *Service) relink(ctx context.Context, sc station.Context, pl *models.HourPlaylist, dj models.DJ, now time.Time) (int, error) {
	slots := make(slot.List, len(pl.Slots))
	copy(slots, pl.Slots)

	var features []int
	var reserved []string
	songIDs := map[string]bool{}
	for i, sl := range slots {
		switch v := sl.(type) {
		case slot.Feature:
			features = append(features, i)
			if v.FeatureContentID != "" {
				reserved = append(reserved, v.FeatureContentID)
			}
		case slot.Song:
			if v.SongID != "" {
				songIDs[v.SongID] = true
			}
		}
	}
	if len(features) == 0 {
		return 0, nil
	}
	sort.SliceStable(features, func(a, b int) bool {
		return slots[features[a]].Header().Position < slots[features[b]].Header().Position
	})

	types, err := s.featureTypes(ctx, sc.ID())
	if err != nil {
		return 0, err
	}
	songs, err := s.songs(ctx, songIDs)
	if err != nil {
		return 0, err
	}

	relinked := 0
	for _, i := range features {
		f := slots[i].(slot.Feature)

		var content *models.FeatureContent
		if f.FeatureContentID != "" {
			current, err := s.contentByID(ctx, f.FeatureContentID)
			if err != nil {
				return relinked, err
			}
			if current != nil && current.IsUsed {
				placement := placementFor(f, types, current.FeatureTypeID)
				if linkedCorrectly(slots, f.Position, placement, current) {
					continue
				}
			}
			if current != nil && !current.IsUsed {
				content = current
			}
		}
		if content == nil {
			content, err = s.pickContent(ctx, dj.ID, f.FeatureTypeID, reserved)
			if err != nil {
				return relinked, err
			}
			if content == nil {
				continue
			}
		}
		ft := types[content.FeatureTypeID]
		placement := placementFor(f, types, content.FeatureTypeID)

		updates := map[string]any{"is_used": true, "used_at": now}
		if placement.TrackLinked() {
			adj, ok := slots.AdjacentSong(f.Position, placement)
			if !ok {
				continue
			}
			song, ok := songs[adj.SongID]
			if !ok {
				continue
			}
			if strings.TrimSpace(ft.PromptTemplate) != "" && s.deps.Renderer != nil {
				updates["content"] = s.deps.Renderer.Render(ft.PromptTemplate, featurepool.ValuesFor(sc, dj, &song))
			}
			updates["related_song_id"] = song.ID
		}

		res := s.db.WithContext(ctx).Model(&models.FeatureContent{}).
			Where("id = ? AND is_used = ?", content.ID, false).
			Updates(updates)
		if res.Error != nil {
			return relinked, fmt.Errorf("failed to relink feature content: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}

		f.FeatureContentID = content.ID
		if f.FeatureTypeID == "" {
			f.FeatureTypeID = content.FeatureTypeID
		}
		if f.FeaturedTrack == "" {
			f.FeaturedTrack = placement
		}
		slots[i] = f
		relinked++
	}

	if relinked == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.HourPlaylist{}).
		Where("id = ?", pl.ID).
		Update("slots", slots).Error; err != nil {
		return relinked, fmt.Errorf("failed to persist slots: %w", err)
	}
	pl.Slots = slots
	return relinked, nil
}

// placementFor prefers the slot's hint, then the slot's feature type, then
// the content's feature type.
func placementFor(f slot.Feature, types map[string]models.FeatureType, contentTypeID string) slot.Placement {
	if f.FeaturedTrack != "" {
		return f.FeaturedTrack
	}
	if slotType, ok := types[f.FeatureTypeID]; ok {
		return slotType.TrackPlacement
	}
	return types[contentTypeID].TrackPlacement
}

// linkedCorrectly reports whether consumed content already talks about the
// song adjacent to pos.
func linkedCorrectly(slots slot.List, pos int, placement slot.Placement, fc *models.FeatureContent) bool {
	if !placement.TrackLinked() {
		return true
	}
	adj, ok := slots.AdjacentSong(pos, placement)
	if !ok {
		return fc.RelatedSongID == nil
	}
	return fc.RelatedSongID != nil && *fc.RelatedSongID == adj.SongID
}

func (s *Service) contentByID(ctx context.Context, id string) (*models.FeatureContent, error) {
	var found []models.FeatureContent
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load feature content %s: %w", id, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// pickContent returns the DJ's oldest unused content, preferring typeID and
// falling back to any type. Content in exclude is never picked.
func (s *Service) pickContent(ctx context.Context, djID, typeID string, exclude []string) (*models.FeatureContent, error) {
	if typeID != "" {
		fc, err := s.oldestUnused(ctx, djID, typeID, exclude)
		if err != nil || fc != nil {
			return fc, err
		}
	}
	return s.oldestUnused(ctx, djID, "", exclude)
}

func (s *Service) oldestUnused(ctx context.Context, djID, typeID string, exclude []string) (*models.FeatureContent, error) {
	q := s.db.WithContext(ctx).Where("dj_id = ? AND is_used = ?", djID, false)
	if typeID != "" {
		q = q.Where("feature_type_id = ?", typeID)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var found []models.FeatureContent
	if err := q.Order("created_at ASC").Order("id ASC").Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to pick feature content: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *Service) featureTypes(ctx context.Context, stationID string) (map[string]models.FeatureType, error) {
	var types []models.FeatureType
	if err := s.db.WithContext(ctx).Where("station_id = ?", stationID).Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to load feature types: %w", err)
	}
	out := make(map[string]models.FeatureType, len(types))
	for _, ft := range types {
		out[ft.ID] = ft
	}
	return out, nil
}

func (s *Service) songs(ctx context.Context, ids map[string]bool) (map[string]models.Song, error) {
	out := make(map[string]models.Song, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	var songs []models.Song
	if err := s.db.WithContext(ctx).Where("id IN ?", list).Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	for _, song := range songs {
		out[song.ID] = song
	}
	return out, nil
}
