/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package slot models the ordered, heterogeneous slot list stored on clock
// templates and hour playlists.
package slot

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Kind is the slot type discriminator.
type Kind string

const (
	KindSong       Kind = "song"
	KindVoiceBreak Kind = "voice_break"
	KindFeature    Kind = "feature"
	KindAd         Kind = "ad"
	KindCommercial Kind = "commercial"
	KindSweeper    Kind = "sweeper"
	KindPromo      Kind = "promo"
	KindStationID  Kind = "station_id"
	KindImaging    Kind = "imaging"
)

// Placement says which neighbouring song a feature talks about.
type Placement string

const (
	PlacementBefore Placement = "before"
	PlacementAfter  Placement = "after"
	PlacementNone   Placement = "none"
)

// TrackLinked reports whether the placement ties the feature to a song.
func (p Placement) TrackLinked() bool {
	return p == PlacementBefore || p == PlacementAfter
}

// Base holds the fields every slot carries.
type Base struct {
	Position        int    `json:"position"`
	Minute          int    `json:"minute"`
	Type            Kind   `json:"type"`
	Category        string `json:"category"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// Slot is one entry of a slot list. The concrete type is one of Song,
// VoiceBreak, Feature, Ad, Imaging or Unknown.
type Slot interface {
	Header() Base
	isSlot()
}

// Song plays a catalog song.
type Song struct {
	Base
	SongID string `json:"songId,omitempty"`

	extra json.RawMessage
}

// VoiceBreak is a spoken DJ segment.
type VoiceBreak struct {
	Base

	extra json.RawMessage
}

// Feature is a templated spoken segment drawn from the feature pool.
type Feature struct {
	Base
	FeatureTypeID    string    `json:"featureTypeId,omitempty"`
	FeatureContentID string    `json:"featureContentId,omitempty"`
	FeaturedTrack    Placement `json:"featuredTrack,omitempty"`

	extra json.RawMessage
}

// Ad is a sponsor avail (type ad or commercial).
type Ad struct {
	Base

	extra json.RawMessage
}

// Imaging is a station imaging avail (sweeper, promo, station_id, imaging).
type Imaging struct {
	Base

	extra json.RawMessage
}

// Unknown keeps a slot whose type this build does not understand so it can be
// written back and emitted unchanged.
type Unknown struct {
	Base
	Raw json.RawMessage `json:"-"`
}

func (s Song) Header() Base       { return s.Base }
func (s VoiceBreak) Header() Base { return s.Base }
func (s Feature) Header() Base    { return s.Base }
func (s Ad) Header() Base         { return s.Base }
func (s Imaging) Header() Base    { return s.Base }
func (s Unknown) Header() Base    { return s.Base }

func (Song) isSlot()       {}
func (VoiceBreak) isSlot() {}
func (Feature) isSlot()    {}
func (Ad) isSlot()         {}
func (Imaging) isSlot()    {}
func (Unknown) isSlot()    {}

// MarshalJSON writes the preserved descriptor verbatim.
func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	return json.Marshal(u.Base)
}

var baseKeys = []string{"position", "minute", "type", "category", "durationSeconds"}

// MarshalJSON writes the typed fields over the stored descriptor.
func (s Song) MarshalJSON() ([]byte, error) {
	type plain Song
	return overlay(s.extra, plain(s), "songId")
}

// MarshalJSON writes the typed fields over the stored descriptor.
func (s VoiceBreak) MarshalJSON() ([]byte, error) {
	type plain VoiceBreak
	return overlay(s.extra, plain(s))
}

// MarshalJSON writes the typed fields over the stored descriptor.
func (s Feature) MarshalJSON() ([]byte, error) {
	type plain Feature
	return overlay(s.extra, plain(s), "featureTypeId", "featureContentId", "featuredTrack")
}

// MarshalJSON writes the typed fields over the stored descriptor.
func (s Ad) MarshalJSON() ([]byte, error) {
	type plain Ad
	return overlay(s.extra, plain(s))
}

// MarshalJSON writes the typed fields over the stored descriptor.
func (s Imaging) MarshalJSON() ([]byte, error) {
	type plain Imaging
	return overlay(s.extra, plain(s))
}

// overlay encodes typed and merges it over extra. Keys the variant owns are
// taken from typed only, so a cleared field does not resurface from extra.
func overlay(extra json.RawMessage, typed any, owned ...string) ([]byte, error) {
	b, err := json.Marshal(typed)
	if err != nil || len(extra) == 0 {
		return b, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(extra, &merged); err != nil {
		return nil, fmt.Errorf("decode stored slot: %w", err)
	}
	for _, k := range baseKeys {
		delete(merged, k)
	}
	for _, k := range owned {
		delete(merged, k)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// IsAdKind reports whether k is a sponsor avail.
func IsAdKind(k Kind) bool {
	return k == KindAd || k == KindCommercial
}

// IsImagingKind reports whether k is a station imaging avail.
func IsImagingKind(k Kind) bool {
	switch k {
	case KindSweeper, KindPromo, KindStationID, KindImaging:
		return true
	}
	return false
}

// Decode builds the variant matching the descriptor's type field.
func Decode(raw json.RawMessage) (Slot, error) {
	var base Base
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("decode slot header: %w", err)
	}

	keep := make(json.RawMessage, len(raw))
	copy(keep, raw)

	switch {
	case base.Type == KindSong:
		var s Song
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode song slot %d: %w", base.Position, err)
		}
		s.extra = keep
		return s, nil
	case base.Type == KindVoiceBreak:
		return VoiceBreak{Base: base, extra: keep}, nil
	case base.Type == KindFeature:
		var s Feature
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode feature slot %d: %w", base.Position, err)
		}
		s.extra = keep
		return s, nil
	case IsAdKind(base.Type):
		return Ad{Base: base, extra: keep}, nil
	case IsImagingKind(base.Type):
		return Imaging{Base: base, extra: keep}, nil
	default:
		return Unknown{Base: base, Raw: keep}, nil
	}
}

// List is an ordered slot list.
type List []Slot

// UnmarshalJSON decodes a JSON array of slot descriptors.
func (l *List) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decode slot list: %w", err)
	}
	out := make(List, 0, len(raws))
	for _, raw := range raws {
		s, err := Decode(raw)
		if err != nil {
			return err
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

// MarshalJSON encodes the list as a JSON array; a nil list encodes as [].
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Slot(l))
}

// Value implements driver.Valuer for columns that do not use gorm's json serializer.
func (l List) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *List) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	default:
		return errors.New("slot list: unsupported scan source")
	}
}

// Sorted returns a copy ordered by ascending position. Stable, so equal
// positions keep their stored order.
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Header().Position < out[j].Header().Position
	})
	return out
}

// LastOfKind returns the index of the slot of kind k with the highest position.
func (l List) LastOfKind(k Kind) (int, bool) {
	idx := -1
	for i, s := range l {
		h := s.Header()
		if h.Type != k {
			continue
		}
		if idx < 0 || h.Position > l[idx].Header().Position {
			idx = i
		}
	}
	return idx, idx >= 0
}

// NextSong returns the song slot with the smallest position greater than pos.
func (l List) NextSong(pos int) (Song, bool) {
	var (
		best  Song
		found bool
	)
	for _, s := range l {
		song, ok := s.(Song)
		if !ok || song.Position <= pos {
			continue
		}
		if !found || song.Position < best.Position {
			best, found = song, true
		}
	}
	return best, found
}

// PrevSong returns the song slot with the largest position smaller than pos.
func (l List) PrevSong(pos int) (Song, bool) {
	var (
		best  Song
		found bool
	)
	for _, s := range l {
		song, ok := s.(Song)
		if !ok || song.Position >= pos {
			continue
		}
		if !found || song.Position > best.Position {
			best, found = song, true
		}
	}
	return best, found
}

// AdjacentSong resolves the song a feature at pos talks about.
func (l List) AdjacentSong(pos int, placement Placement) (Song, bool) {
	switch placement {
	case PlacementBefore:
		return l.NextSong(pos)
	case PlacementAfter:
		return l.PrevSong(pos)
	}
	return Song{}, false
}

// Positions returns the positions of slots matching keep, in list order.
func (l List) Positions(keep func(Kind) bool) []int {
	var out []int
	for _, s := range l {
		h := s.Header()
		if keep(h.Type) {
			out = append(out, h.Position)
		}
	}
	return out
}
