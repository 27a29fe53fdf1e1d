/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autopilot"

// Registry holds every autopilot collector. Tests may gather from it directly.
var Registry = prometheus.NewRegistry()

var (
	// HTTP API
	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "In-flight HTTP requests.",
	})

	// Database
	DatabaseQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database operation latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_errors_total",
		Help:      "Database operation failures by operation and table.",
	}, []string{"operation", "table"})

	DatabaseConnectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_open",
		Help:      "Open database connections.",
	})

	DatabaseConnectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_in_use",
		Help:      "Database connections currently in use.",
	})

	// Daily jobs
	JobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Daily job runs by job and outcome.",
	}, []string{"job", "outcome"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Daily job wall time.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"job"})

	GenerationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_errors_total",
		Help:      "Recovered per-item failures inside daily jobs.",
	}, []string{"job", "stage"})

	FeatureContentGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_content_generated_total",
		Help:      "Feature content items generated by the pool manager.",
	}, []string{"station_id"})

	FeatureContentExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_content_expired_total",
		Help:      "Stale feature content items retired by the pool manager.",
	}, []string{"station_id"})

	HoursLocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hour_playlists_locked_total",
		Help:      "Hour playlists built and locked by the orchestrator.",
	}, []string{"station_id"})

	GenericTracksUsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generic_voice_tracks_used_total",
		Help:      "Voice breaks satisfied from pre-recorded generic tracks.",
	}, []string{"station_id"})

	// Collaborators
	CollaboratorRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collaborator_request_duration_seconds",
		Help:      "Latency of calls to the playlist builder and the script and audio generators.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"collaborator", "outcome"})

	// Program log
	ProgramLogAssemblyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "program_log_assembly_duration_seconds",
		Help:      "Time to assemble one program log.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"station_id"})

	ProgramLogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "program_log_requests_total",
		Help:      "Program log lookups by result (hit, miss, not_found, error).",
	}, []string{"result"})

	// Leadership
	LeaderElectionStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leader_election_status",
		Help:      "1 when this instance holds leadership.",
	}, []string{"instance_id"})

	LeaderElectionChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leader_election_changes_total",
		Help:      "Leadership acquisitions and losses.",
	}, []string{"change"})

	// In-process trigger
	SchedulerTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_ticks_total",
		Help:      "Daily trigger evaluation ticks.",
	})

	ScheduledRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_runs_total",
		Help:      "Station runs fired by the in-process trigger, by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveConnections,
		DatabaseQueryDuration,
		DatabaseErrorsTotal,
		DatabaseConnectionsOpen,
		DatabaseConnectionsInUse,
		JobRunsTotal,
		JobDuration,
		GenerationErrorsTotal,
		FeatureContentGenerated,
		FeatureContentExpired,
		HoursLocked,
		GenericTracksUsed,
		CollaboratorRequestDuration,
		ProgramLogAssemblyDuration,
		ProgramLogRequestsTotal,
		LeaderElectionStatus,
		LeaderElectionChanges,
		SchedulerTicksTotal,
		ScheduledRunsTotal,
	)
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
