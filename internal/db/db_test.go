package db

import (
	"testing"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/slot"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateCreatesTablesAndRoundTripsSlots(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := RegisterCallbacks(database); err != nil {
		t.Fatalf("register callbacks: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, m := range Models() {
		if !database.Migrator().HasTable(m) {
			t.Fatalf("expected table for %T", m)
		}
	}

	pl := models.HourPlaylist{
		ID:        "pl-1",
		StationID: "st-1",
		AirDate:   "2026-02-25",
		HourOfDay: 6,
		Status:    models.PlaylistLocked,
		Slots: slot.List{
			slot.Song{Base: slot.Base{Position: 0, Type: slot.KindSong}, SongID: "song-1"},
			slot.Feature{Base: slot.Base{Position: 1, Type: slot.KindFeature}, FeatureContentID: "fc-1"},
		},
	}
	if err := database.Create(&pl).Error; err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	var got models.HourPlaylist
	if err := database.First(&got, "id = ?", "pl-1").Error; err != nil {
		t.Fatalf("load playlist: %v", err)
	}
	if len(got.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got.Slots))
	}
	if f, ok := got.Slots[1].(slot.Feature); !ok || f.FeatureContentID != "fc-1" {
		t.Fatalf("unexpected feature slot: %#v", got.Slots[1])
	}

	UpdateConnectionMetrics(database)
}
