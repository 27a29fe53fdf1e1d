/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_autopilot/internal/db"
	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/jobs"
	"github.com/friendsincode/grimnir_autopilot/internal/server"
)

var jobStationID string

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Top up the feature content pool once",
	Long: `Expire stale auto-generated feature content and top up every scheduled
(DJ, feature type) pair to the pool target.

Examples:
  # Every station
  autopilot pool

  # One station
  autopilot pool --station 3f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), func(ctx context.Context, r *jobs.Runner) (any, error) {
			return r.FeaturePool(ctx, jobStationID)
		})
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Build, lock and voice today's hours once",
	Long: `Build every scheduled hour of the station-local day, lock it, substitute
generic voice tracks, request scripts and audio, and relink features.

Examples:
  autopilot daily --station 3f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), func(ctx context.Context, r *jobs.Runner) (any, error) {
			return r.DailyHours(ctx, jobStationID)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{poolCmd, dailyCmd} {
		c.Flags().StringVar(&jobStationID, "station", "", "Station ID (default: every station)")
		rootCmd.AddCommand(c)
	}
}

// runJob runs one job against the configured database and prints its summary as JSON.
func runJob(parent context.Context, run func(context.Context, *jobs.Runner) (any, error)) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := initTracer(ctx)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer shutdownTracer(tracerProvider)

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	runner := server.BuildJobs(database, cfg, events.NewBus(), logger)
	summary, err := run(ctx, runner)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
