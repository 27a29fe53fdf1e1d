package underwriting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.SponsorAd{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAds(t *testing.T, db *gorm.DB) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ads := []models.SponsorAd{
		{ID: "ad-b", StationID: "st", Title: "B", AudioURL: "ads/b.mp3", Weight: 1, Active: true, CreatedAt: base.Add(time.Hour)},
		{ID: "ad-a", StationID: "st", Title: "A", AudioURL: "ads/a.mp3", Weight: 1, Active: true, CreatedAt: base},
		{ID: "ad-silent", StationID: "st", Title: "No audio", Weight: 1, Active: true, CreatedAt: base},
		{ID: "ad-other", StationID: "other", Title: "Other station", AudioURL: "ads/o.mp3", Weight: 1, Active: true, CreatedAt: base},
	}
	if err := db.Create(&ads).Error; err != nil {
		t.Fatalf("seed ads: %v", err)
	}
}

func TestResolveUsesActiveAdsWithAudio(t *testing.T) {
	db := newTestDB(t)
	seedAds(t, db)
	svc := NewService(db, zerolog.Nop())

	got, err := svc.Resolve(context.Background(), "st", []int{4, 10, 15})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got[4].ID != "ad-a" || got[10].ID != "ad-b" || got[15].ID != "ad-a" {
		t.Fatalf("unexpected assignment: %s %s %s", got[4].ID, got[10].ID, got[15].ID)
	}
}

func TestMarkAiredFeedsRotation(t *testing.T) {
	db := newTestDB(t)
	seedAds(t, db)
	svc := NewService(db, zerolog.Nop())
	ctx := context.Background()

	at := time.Date(2026, 2, 25, 6, 12, 0, 0, time.UTC)
	ad, err := svc.MarkAired(ctx, "ad-a", at)
	if err != nil {
		t.Fatalf("mark aired: %v", err)
	}
	if ad.PlayCount != 1 || ad.LastPlayedAt == nil || !ad.LastPlayedAt.Equal(at) {
		t.Fatalf("unexpected ad after airing: %+v", ad)
	}

	got, err := svc.Resolve(ctx, "st", []int{1})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got[1].ID != "ad-b" {
		t.Fatalf("expected less-played ad first, got %s", got[1].ID)
	}

	if _, err := svc.MarkAired(ctx, "missing", at); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("expected ErrAdNotFound, got %v", err)
	}
}

func TestAdStation(t *testing.T) {
	db := newTestDB(t)
	seedAds(t, db)
	svc := NewService(db, zerolog.Nop())

	tests := []struct {
		id      string
		want    string
		wantErr error
	}{
		{"ad-a", "st", nil},
		{"ad-other", "other", nil},
		{"missing", "", ErrAdNotFound},
	}
	for _, tt := range tests {
		got, err := svc.AdStation(context.Background(), tt.id)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", tt.id, got, err, tt.want, tt.wantErr)
		}
	}
}
