package underwriting

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/models"
)

func ids(ads []models.SponsorAd) []string {
	out := make([]string, len(ads))
	for i, a := range ads {
		out[i] = a.ID
	}
	return out
}

func TestRankOrdersByScoreThenLastPlayed(t *testing.T) {
	early := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 24, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ads  []models.SponsorAd
		want []string
	}{
		{
			name: "identical ads keep store order",
			ads:  []models.SponsorAd{{ID: "A", Weight: 1}, {ID: "B", Weight: 1}},
			want: []string{"A", "B"},
		},
		{
			name: "weight divides play count",
			ads: []models.SponsorAd{
				{ID: "light", PlayCount: 4, Weight: 1},
				{ID: "heavy", PlayCount: 4, Weight: 4},
			},
			want: []string{"heavy", "light"},
		},
		{
			name: "zero weight counts as one",
			ads: []models.SponsorAd{
				{ID: "zero", PlayCount: 2, Weight: 0},
				{ID: "one", PlayCount: 1, Weight: 1},
			},
			want: []string{"one", "zero"},
		},
		{
			name: "never played outranks played on equal score",
			ads: []models.SponsorAd{
				{ID: "played", Weight: 1, LastPlayedAt: &early},
				{ID: "never", Weight: 1},
			},
			want: []string{"never", "played"},
		},
		{
			name: "older play first",
			ads: []models.SponsorAd{
				{ID: "recent", PlayCount: 1, Weight: 1, LastPlayedAt: &late},
				{ID: "older", PlayCount: 1, Weight: 1, LastPlayedAt: &early},
			},
			want: []string{"older", "recent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Rank(tt.ads))
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestAssignStableTieBreak(t *testing.T) {
	pool := Rank([]models.SponsorAd{{ID: "A", Weight: 1}, {ID: "B", Weight: 1}})
	got := Assign(pool, []int{3, 9})

	if got[3].ID != "A" || got[9].ID != "B" {
		t.Fatalf("expected [A B], got [%s %s]", got[3].ID, got[9].ID)
	}
}

func TestAssignCyclesWhenSlotsExceedAds(t *testing.T) {
	pool := Rank([]models.SponsorAd{{ID: "A", Weight: 1}, {ID: "B", Weight: 1}})
	got := Assign(pool, []int{2, 5, 8})

	if got[8].ID != "A" {
		t.Fatalf("expected third slot to cycle back to A, got %s", got[8].ID)
	}
}

func TestAssignEmptyPool(t *testing.T) {
	if got := Assign(nil, []int{1, 2}); len(got) != 0 {
		t.Fatalf("expected no assignments, got %v", got)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []models.SponsorAd{{ID: "B", PlayCount: 3, Weight: 1}, {ID: "A", Weight: 1}}
	_ = Rank(in)
	if in[0].ID != "B" {
		t.Fatal("input reordered")
	}
}
