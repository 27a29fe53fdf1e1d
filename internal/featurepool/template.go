/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package featurepool

import (
	"math/rand"
	"regexp"
	"strconv"
	"sync"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
)

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// Values are the known placeholder substitutions for one feature item.
type Values struct {
	Artist  string
	Title   string
	Genre   string
	Album   string
	DJName  string
	Date    string
	DayName string
}

// ValuesFor collects placeholder values for dj, today, and an optional song.
func ValuesFor(sc station.Context, dj models.DJ, song *models.Song) Values {
	v := Values{
		DJName:  dj.FirstName(),
		Date:    sc.Now.Format("January 2"),
		DayName: sc.DayName(),
	}
	if song != nil {
		v.Artist = song.Artist
		v.Title = song.Title
		v.Genre = song.Genre
		v.Album = song.Album
	}
	return v
}

func (v Values) lookup(key string) (string, bool) {
	switch key {
	case "artist":
		return v.Artist, true
	case "song_title", "title":
		return v.Title, true
	case "genre":
		return v.Genre, true
	case "album":
		return v.Album, true
	case "dj_name":
		return v.DJName, true
	case "date":
		return v.Date, true
	case "day_name":
		return v.DayName, true
	}
	return "", false
}

// Renderer fills feature templates. Safe for concurrent use.
type Renderer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	fillers map[string][]string
}

// NewRenderer creates a renderer drawing generic fillers from rng.
func NewRenderer(rng *rand.Rand, fillers map[string][]string) *Renderer {
	return &Renderer{rng: rng, fillers: fillers}
}

// Render substitutes every {placeholder} in tmpl. Unknown keys without a
// filler pool are left as written.
func (r *Renderer) Render(tmpl string, v Values) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return placeholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[1 : len(match)-1]
		if val, ok := v.lookup(key); ok {
			return val
		}
		if pool := r.fillers[key]; len(pool) > 0 {
			return pool[r.rng.Intn(len(pool))]
		}
		if val, ok := r.builtinFiller(key); ok {
			return val
		}
		return match
	})
}

func (r *Renderer) builtinFiller(key string) (string, bool) {
	switch key {
	case "number":
		return strconv.Itoa(1 + r.rng.Intn(10)), true
	case "percent":
		return strconv.Itoa(10+r.rng.Intn(86)) + "%", true
	case "temperature":
		return strconv.Itoa(40+r.rng.Intn(56)) + " degrees", true
	case "count":
		return strconv.Itoa(2 + r.rng.Intn(11)), true
	}
	return "", false
}

// Intn draws from the renderer's random source.
func (r *Renderer) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Shuffle permutes n items through swap using the renderer's random source.
func (r *Renderer) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}
