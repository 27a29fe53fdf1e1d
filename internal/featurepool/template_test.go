package featurepool

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
)

func TestRenderSubstitutesKnownPlaceholders(t *testing.T) {
	sc := station.New(models.Station{ID: "st", Timezone: "UTC"}, time.Date(2026, 2, 25, 9, 0, 0, 0, time.UTC))
	song := &models.Song{Title: "Blue Line", Artist: "The Commuters", Genre: "indie", Album: "Transit"}
	v := ValuesFor(sc, models.DJ{Name: "Ava Stone"}, song)

	r := NewRenderer(rand.New(rand.NewSource(1)), map[string][]string{"city": {"Portland"}})
	got := r.Render("{dj_name} on {day_name}, {date}: {artist} - {song_title} / {title} ({genre}, {album}) in {city} {mystery}", v)

	want := "Ava on Wednesday, February 25: The Commuters - Blue Line / Blue Line (indie, Transit) in Portland {mystery}"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderBuiltinFillersAreDeterministicForSeed(t *testing.T) {
	tmpl := "{number} {percent} {temperature} {count}"
	a := NewRenderer(rand.New(rand.NewSource(42)), nil).Render(tmpl, Values{})
	b := NewRenderer(rand.New(rand.NewSource(42)), nil).Render(tmpl, Values{})
	if a != b {
		t.Fatalf("expected same output for same seed, got %q and %q", a, b)
	}
	if strings.Contains(a, "{") {
		t.Fatalf("expected all fillers replaced, got %q", a)
	}
}

func TestValuesForWithoutSongLeavesSongFieldsEmpty(t *testing.T) {
	sc := station.New(models.Station{ID: "st"}, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC))
	v := ValuesFor(sc, models.DJ{Name: "Max"}, nil)
	if v.Artist != "" || v.DJName != "Max" || v.DayName != "Saturday" {
		t.Fatalf("unexpected values: %+v", v)
	}
}
