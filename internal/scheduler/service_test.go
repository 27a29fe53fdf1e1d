package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
	"github.com/friendsincode/grimnir_autopilot/internal/models"
	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/scheduler/state"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
)

type fakeStations struct {
	stations []models.Station
	err      error
}

func (f fakeStations) All(ctx context.Context, now time.Time) ([]station.Context, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]station.Context, 0, len(f.stations))
	for _, st := range f.stations {
		out = append(out, station.New(st, now))
	}
	return out, nil
}

type fakeJobs struct {
	mu       sync.Mutex
	calls    []string
	poolErr  error
	dailyErr error
	panicky  bool
}

func (f *fakeJobs) FeaturePool(ctx context.Context, stationID string) (featurepool.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "pool:"+stationID)
	f.mu.Unlock()
	if f.panicky {
		panic("pool exploded")
	}
	return featurepool.NewSummary(time.Now()), f.poolErr
}

func (f *fakeJobs) DailyHours(ctx context.Context, stationID string) (orchestrator.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "daily:"+stationID)
	f.mu.Unlock()
	return orchestrator.NewSummary(time.Now()), f.dailyErr
}

func (f *fakeJobs) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var testStations = []models.Station{
	{ID: "st-utc", Timezone: "UTC"},
	{ID: "st-chicago", Timezone: "America/Chicago"},
}

func newService(jobs *fakeJobs, stations Stations, claims state.Claims, now time.Time) *Service {
	svc := New(stations, jobs, claims, Config{RunHour: 2}, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestDue(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		now  time.Time
		want bool
	}{
		{name: "utc in run hour", tz: "UTC", now: time.Date(2026, 2, 25, 2, 15, 0, 0, time.UTC), want: true},
		{name: "utc before run hour", tz: "UTC", now: time.Date(2026, 2, 25, 1, 59, 0, 0, time.UTC), want: false},
		{name: "utc after run hour", tz: "UTC", now: time.Date(2026, 2, 25, 3, 0, 0, 0, time.UTC), want: false},
		{name: "chicago local run hour", tz: "America/Chicago", now: time.Date(2026, 2, 25, 8, 30, 0, 0, time.UTC), want: true},
		{name: "chicago at utc run hour", tz: "America/Chicago", now: time.Date(2026, 2, 25, 2, 30, 0, 0, time.UTC), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := station.New(models.Station{ID: "st", Timezone: tt.tz}, tt.now)
			if got := Due(sc, 2); got != tt.want {
				t.Fatalf("Due = %v, want %v (local %s)", got, tt.want, sc.Now)
			}
		})
	}
}

func TestTickRunsPoolThenDailyOncePerDay(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newService(jobs, fakeStations{stations: testStations}, state.NewStore(), time.Date(2026, 2, 25, 2, 5, 0, 0, time.UTC))

	svc.tick(context.Background())
	svc.tick(context.Background())

	got := jobs.Calls()
	want := []string{"pool:st-utc", "daily:st-utc"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestTickReleasesClaimWhenBothJobsFail(t *testing.T) {
	jobs := &fakeJobs{poolErr: errors.New("db down"), dailyErr: errors.New("db down")}
	claims := state.NewStore()
	svc := newService(jobs, fakeStations{stations: testStations[:1]}, claims, time.Date(2026, 2, 25, 2, 5, 0, 0, time.UTC))

	svc.tick(context.Background())
	if claims.Len() != 0 {
		t.Fatal("expected claim released after total failure")
	}
	svc.tick(context.Background())
	if n := len(jobs.Calls()); n != 4 {
		t.Fatalf("expected retry on next tick, got %d calls", n)
	}
}

func TestTickKeepsClaimOnPartialFailure(t *testing.T) {
	jobs := &fakeJobs{panicky: true}
	claims := state.NewStore()
	svc := newService(jobs, fakeStations{stations: testStations[:1]}, claims, time.Date(2026, 2, 25, 2, 5, 0, 0, time.UTC))

	svc.tick(context.Background())

	if claims.Len() != 1 {
		t.Fatal("expected claim kept when the daily job ran")
	}
	if got := jobs.Calls(); len(got) != 2 || got[1] != "daily:st-utc" {
		t.Fatalf("expected daily job after pool panic, got %v", got)
	}
}

func TestTickWithoutStations(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newService(jobs, fakeStations{err: station.ErrNoStation}, nil, time.Date(2026, 2, 25, 2, 5, 0, 0, time.UTC))

	svc.tick(context.Background())

	if len(jobs.Calls()) != 0 {
		t.Fatal("expected no job calls")
	}
}

func TestNewDefaults(t *testing.T) {
	svc := New(fakeStations{}, &fakeJobs{}, nil, Config{RunHour: 30}, zerolog.Nop())
	if svc.cfg.Interval != defaultInterval {
		t.Fatalf("interval = %s", svc.cfg.Interval)
	}
	if svc.cfg.RunHour != 0 {
		t.Fatalf("run hour = %d", svc.cfg.RunHour)
	}
	if svc.claims == nil {
		t.Fatal("expected default claim store")
	}
}

type fakeElector struct {
	ch     chan bool
	leader bool
}

func (f *fakeElector) Start(ctx context.Context) {}
func (f *fakeElector) Stop()                     {}
func (f *fakeElector) IsLeader() bool            { return f.leader }
func (f *fakeElector) LeaderCh() <-chan bool     { return f.ch }

type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context) error {
	b.started <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestLeaderAwareFollowsLeadership(t *testing.T) {
	elector := &fakeElector{ch: make(chan bool)}
	inner := &blockingRunner{started: make(chan struct{}, 4)}
	la := NewLeaderAware(inner, elector, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- la.Run(ctx) }()

	elector.ch <- true
	select {
	case <-inner.started:
	case <-time.After(time.Second):
		t.Fatal("expected trigger to start on leadership")
	}

	elector.ch <- false
	elector.ch <- true
	select {
	case <-inner.started:
	case <-time.After(time.Second):
		t.Fatal("expected trigger to restart on regained leadership")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected Run to return")
	}
	if la.Running() {
		t.Fatal("expected trigger stopped")
	}
}
