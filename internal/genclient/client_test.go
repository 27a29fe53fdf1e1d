package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/slot"
	"github.com/rs/zerolog"
)

func TestPlaylistBuilderBuild(t *testing.T) {
	var got orchestrator.BuildRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hourPlaylistId":"pl-1","slots":[{"position":0,"minute":0,"type":"song","category":"A","songId":"s1"},{"position":1,"minute":4,"type":"voice_break","category":"talk"}]}`))
	}))
	defer srv.Close()

	b := NewPlaylistBuilder(srv.URL, Config{Token: "tok"}, zerolog.Nop())
	res, err := b.Build(context.Background(), orchestrator.BuildRequest{StationID: "st", DJID: "dj", ClockTemplateID: "tpl", Date: "2026-02-25", Hour: 6})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got.Hour != 6 || got.Date != "2026-02-25" || got.ClockTemplateID != "tpl" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if res.HourPlaylistID != "pl-1" || len(res.Slots) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if song, ok := res.Slots[0].(slot.Song); !ok || song.SongID != "s1" {
		t.Fatalf("expected decoded song slot, got %#v", res.Slots[0])
	}
}

func TestPlaylistBuilderRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slots":[]}`))
	}))
	defer srv.Close()

	b := NewPlaylistBuilder(srv.URL, Config{}, zerolog.Nop())
	if _, err := b.Build(context.Background(), orchestrator.BuildRequest{}); err == nil {
		t.Fatal("expected error for missing playlist id")
	}
}

func TestScriptGeneratorSendsSkipPositions(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header without a token")
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"generated":3,"errors":["position 4: empty script"]}`))
	}))
	defer srv.Close()

	g := NewScriptGenerator(srv.URL, Config{}, zerolog.Nop())
	res, err := g.Generate(context.Background(), "pl-1", []int{5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Generated != 3 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if body["hourPlaylistId"] != "pl-1" {
		t.Fatalf("unexpected playlist id: %v", body["hourPlaylistId"])
	}
	skips, ok := body["skipPositions"].([]any)
	if !ok || len(skips) != 1 || skips[0].(float64) != 5 {
		t.Fatalf("unexpected skip positions: %v", body["skipPositions"])
	}
}

func TestAudioGeneratorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tts quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewAudioGenerator(srv.URL, Config{}, zerolog.Nop())
	_, err := g.Generate(context.Background(), "pl-1")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests || se.Body != "tts quota exceeded" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"generated":1}`))
	}))
	defer srv.Close()

	g := NewAudioGenerator(srv.URL, Config{Timeout: 20 * time.Millisecond}, zerolog.Nop())
	if _, err := g.Generate(context.Background(), "pl-1"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestUnconfiguredEndpoint(t *testing.T) {
	g := NewScriptGenerator("  ", Config{}, zerolog.Nop())
	_, err := g.Generate(context.Background(), "pl-1", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
