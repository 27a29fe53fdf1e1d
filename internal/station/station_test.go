package station

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestDayTypeFor(t *testing.T) {
	tests := []struct {
		date string
		want models.DayType
	}{
		{"2026-02-25", models.DayTypeWeekday},
		{"2026-02-28", models.DayTypeSaturday},
		{"2026-03-01", models.DayTypeSunday},
		{"2026-03-02", models.DayTypeWeekday},
	}
	for _, tt := range tests {
		d, _ := time.Parse(DateLayout, tt.date)
		if got := DayTypeFor(d); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.date, tt.want, got)
		}
	}
}

func TestNewUsesStationTimezone(t *testing.T) {
	// 03:00 UTC on Saturday is still Friday evening in Chicago.
	now := time.Date(2026, 2, 28, 3, 0, 0, 0, time.UTC)
	sc := New(models.Station{ID: "st", Timezone: "America/Chicago"}, now)

	if sc.Date != "2026-02-27" {
		t.Fatalf("expected local date 2026-02-27, got %s", sc.Date)
	}
	if sc.DayType != models.DayTypeWeekday {
		t.Fatalf("expected weekday, got %s", sc.DayType)
	}
	if sc.DayName() != "Friday" {
		t.Fatalf("expected Friday, got %s", sc.DayName())
	}
}

func TestNewFallsBackToUTCForUnknownZone(t *testing.T) {
	sc := New(models.Station{ID: "st", Timezone: "Mars/Olympus"}, time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC))
	if sc.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", sc.Location)
	}
}

func TestLoaderSelect(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Station{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	loader := NewLoader(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)

	if _, err := loader.Select(ctx, "", now); !errors.Is(err, ErrNoStation) {
		t.Fatalf("expected ErrNoStation, got %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"st-a", "st-b"} {
		st := models.Station{ID: id, Name: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.Create(&st).Error; err != nil {
			t.Fatalf("create station: %v", err)
		}
	}

	all, err := loader.Select(ctx, "", now)
	if err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(all) != 2 || all[0].ID() != "st-a" {
		t.Fatalf("unexpected stations: %+v", all)
	}

	one, err := loader.Select(ctx, "st-b", now)
	if err != nil {
		t.Fatalf("select one: %v", err)
	}
	if len(one) != 1 || one[0].ID() != "st-b" {
		t.Fatalf("unexpected station: %+v", one)
	}

	if _, err := loader.Load(ctx, "missing", now); !errors.Is(err, ErrNoStation) {
		t.Fatalf("expected ErrNoStation, got %v", err)
	}
}
