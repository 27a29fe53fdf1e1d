/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package genclient talks to the playlist builder and the script and audio
// generators over HTTP.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
)

// DefaultTimeout bounds one collaborator call. Building and voicing an hour is slow.
const DefaultTimeout = 5 * time.Minute

// ErrNotConfigured is returned when a collaborator has no endpoint.
var ErrNotConfigured = errors.New("collaborator endpoint not configured")

// Config holds what every collaborator client shares.
type Config struct {
	Token     string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// StatusError is a non-2xx collaborator response.
type StatusError struct {
	Collaborator string
	StatusCode   int
	Body         string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Collaborator, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Collaborator, e.StatusCode, e.Body)
}

type client struct {
	name     string
	endpoint string
	token    string
	http     *http.Client
	logger   zerolog.Logger
}

func newClient(name, endpoint string, cfg Config, logger zerolog.Logger) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &client{
		name:     name,
		endpoint: strings.TrimSpace(endpoint),
		token:    cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: telemetry.HTTPTransport(base),
		},
		logger: logger.With().Str("component", "genclient").Str("collaborator", name).Logger(),
	}
}

// post sends in as JSON and decodes the response into out. One attempt only.
func (c *client) post(ctx context.Context, in, out any) (err error) {
	if c.endpoint == "" {
		return fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		telemetry.CollaboratorRequestDuration.WithLabelValues(c.name, outcome).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Grimnir-Autopilot/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().Int("status", resp.StatusCode).Msg("collaborator returned error status")
		return &StatusError{Collaborator: c.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	c.logger.Debug().Dur("elapsed", time.Since(start)).Msg("collaborator call complete")
	return nil
}

// PlaylistBuilder calls the external playlist builder.
type PlaylistBuilder struct {
	c *client
}

// NewPlaylistBuilder creates a builder client posting to endpoint.
func NewPlaylistBuilder(endpoint string, cfg Config, logger zerolog.Logger) *PlaylistBuilder {
	return &PlaylistBuilder{c: newClient("playlist_builder", endpoint, cfg, logger)}
}

// Build asks for a draft playlist for one hour.
func (b *PlaylistBuilder) Build(ctx context.Context, req orchestrator.BuildRequest) (orchestrator.BuildResult, error) {
	var out orchestrator.BuildResult
	if err := b.c.post(ctx, req, &out); err != nil {
		return orchestrator.BuildResult{}, err
	}
	if out.HourPlaylistID == "" {
		return orchestrator.BuildResult{}, errors.New("playlist builder response missing hourPlaylistId")
	}
	return out, nil
}

type scriptRequest struct {
	HourPlaylistID string `json:"hourPlaylistId"`
	SkipPositions  []int  `json:"skipPositions,omitempty"`
}

// ScriptGenerator calls the external script writer.
type ScriptGenerator struct {
	c *client
}

// NewScriptGenerator creates a script generator client posting to endpoint.
func NewScriptGenerator(endpoint string, cfg Config, logger zerolog.Logger) *ScriptGenerator {
	return &ScriptGenerator{c: newClient("script_generator", endpoint, cfg, logger)}
}

// Generate writes scripts for the playlist, leaving skipPositions alone.
func (g *ScriptGenerator) Generate(ctx context.Context, hourPlaylistID string, skipPositions []int) (orchestrator.GenerationResult, error) {
	var out orchestrator.GenerationResult
	err := g.c.post(ctx, scriptRequest{HourPlaylistID: hourPlaylistID, SkipPositions: skipPositions}, &out)
	return out, err
}

type audioRequest struct {
	HourPlaylistID string `json:"hourPlaylistId"`
}

// AudioGenerator calls the external text-to-speech renderer.
type AudioGenerator struct {
	c *client
}

// NewAudioGenerator creates an audio generator client posting to endpoint.
func NewAudioGenerator(endpoint string, cfg Config, logger zerolog.Logger) *AudioGenerator {
	return &AudioGenerator{c: newClient("audio_generator", endpoint, cfg, logger)}
}

// Generate renders audio for the playlist's script-ready voice tracks.
func (g *AudioGenerator) Generate(ctx context.Context, hourPlaylistID string) (orchestrator.GenerationResult, error) {
	var out orchestrator.GenerationResult
	err := g.c.post(ctx, audioRequest{HourPlaylistID: hourPlaylistID}, &out)
	return out, err
}

var (
	_ orchestrator.PlaylistBuilder = (*PlaylistBuilder)(nil)
	_ orchestrator.ScriptGenerator = (*ScriptGenerator)(nil)
	_ orchestrator.AudioGenerator  = (*AudioGenerator)(nil)
)
