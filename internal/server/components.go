/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_autopilot/internal/config"
	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/featurepool"
	"github.com/friendsincode/grimnir_autopilot/internal/genclient"
	"github.com/friendsincode/grimnir_autopilot/internal/imaging"
	"github.com/friendsincode/grimnir_autopilot/internal/jobs"
	"github.com/friendsincode/grimnir_autopilot/internal/media"
	"github.com/friendsincode/grimnir_autopilot/internal/orchestrator"
	"github.com/friendsincode/grimnir_autopilot/internal/programlog"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/transition"
	"github.com/friendsincode/grimnir_autopilot/internal/underwriting"
)

// newRand seeds from cfg, or from the clock when no seed is configured.
func newRand(cfg *config.Config) *rand.Rand {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// TransitionHours maps the programming rules onto transition lookups.
func TransitionHours(cfg *config.Config) transition.Hours {
	if cfg.Programming == nil {
		return transition.DefaultHours()
	}
	return transition.Hours{
		ShiftStarts: cfg.Programming.ShiftStartHours,
		Handoffs:    cfg.Programming.HandoffHours,
	}
}

// BuildJobs wires the feature pool manager and the hour orchestrator behind a
// job runner. It is shared by the HTTP server and the CLI job commands.
func BuildJobs(database *gorm.DB, cfg *config.Config, bus events.Publisher, logger zerolog.Logger) *jobs.Runner {
	var fillers map[string][]string
	if cfg.Programming != nil {
		fillers = cfg.Programming.Fillers
	}
	renderer := featurepool.NewRenderer(newRand(cfg), fillers)

	pool := featurepool.NewManager(database, renderer, featurepool.Config{
		Target:    cfg.PoolTarget,
		Freshness: cfg.FeatureFreshness,
	}, logger)

	clientCfg := genclient.Config{
		Token:   cfg.CollaboratorToken,
		Timeout: cfg.CollaboratorTimeout,
	}
	daily := orchestrator.NewService(database, orchestrator.Deps{
		Builder:  genclient.NewPlaylistBuilder(cfg.PlaylistBuilderURL, clientCfg, logger),
		Scripts:  genclient.NewScriptGenerator(cfg.ScriptGeneratorURL, clientCfg, logger),
		Audio:    genclient.NewAudioGenerator(cfg.AudioGeneratorURL, clientCfg, logger),
		Renderer: renderer,
		Events:   bus,
	}, logger)

	return jobs.NewRunner(station.NewLoader(database), pool, daily, bus, logger)
}

// BuildURLResolver presigns S3 locations when a bucket is configured and
// prefixes the public base URL otherwise.
func BuildURLResolver(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*media.Resolver, error) {
	var signer media.Signer
	if cfg.S3Bucket != "" {
		s3Signer, err := media.NewS3Signer(ctx, media.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			PresignTTL:      cfg.S3PresignTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize s3 signer: %w", err)
		}
		signer = s3Signer
	}
	return media.NewResolver(signer, cfg.AudioPublicBaseURL, logger), nil
}

// BuildAssembler wires the program log assembler and its resolvers.
func BuildAssembler(database *gorm.DB, cfg *config.Config, urls programlog.URLResolver, logger zerolog.Logger) *programlog.Assembler {
	return programlog.NewAssembler(database, programlog.Deps{
		Ads:         underwriting.NewService(database, logger),
		Transitions: transition.NewResolver(database, TransitionHours(cfg)),
		Imaging:     imaging.NewResolver(database, newRand(cfg)),
		URLs:        urls,
	}, logger)
}
