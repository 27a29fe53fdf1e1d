/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_autopilot/internal/api"
	"github.com/friendsincode/grimnir_autopilot/internal/cache"
	"github.com/friendsincode/grimnir_autopilot/internal/config"
	"github.com/friendsincode/grimnir_autopilot/internal/db"
	"github.com/friendsincode/grimnir_autopilot/internal/eventbus"
	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/friendsincode/grimnir_autopilot/internal/leadership"
	"github.com/friendsincode/grimnir_autopilot/internal/programlog"
	"github.com/friendsincode/grimnir_autopilot/internal/scheduler"
	schedulerstate "github.com/friendsincode/grimnir_autopilot/internal/scheduler/state"
	"github.com/friendsincode/grimnir_autopilot/internal/station"
	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"github.com/friendsincode/grimnir_autopilot/internal/underwriting"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	redis      *redis.Client
	cache      *cache.Cache
	bus        *events.Bus
	relay      *eventbus.Relay
	programLog *programlog.Cached
	api        *api.API
	trigger    scheduler.Runnable
	election   *leadership.Election

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("grimnir-autopilot-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Cron runs call slow collaborators and may exceed the request timeout.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/v1/cron/") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Cron responses arrive only after the whole run.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database

	if err := s.initRedis(); err != nil {
		return err
	}

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		relay, err := eventbus.NewNATSRelay(natsCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("initialize event relay: %w", err)
		}
		s.relay = relay
		s.DeferClose(relay.Close)
		s.logger.Info().Str("url", s.cfg.NATSURL).Msg("NATS event relay enabled")
	}

	runner := BuildJobs(database, s.cfg, s.bus, s.logger)

	urls, err := BuildURLResolver(context.Background(), s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.programLog = programlog.NewCached(BuildAssembler(database, s.cfg, urls, s.logger), s.cache, s.logger)

	s.api = api.New(api.Config{
		JWTSecret:   []byte(s.cfg.JWTSigningKey),
		CronSecret:  s.cfg.CronSecret,
		Development: s.cfg.IsDevelopment(),
	}, runner, s.programLog, underwriting.NewService(database, s.logger), s.bus, s.logger)

	if s.cfg.SchedulerEnabled {
		var claims schedulerstate.Claims = schedulerstate.NewStore()
		if s.redis != nil {
			claims = schedulerstate.NewRedisStore(s.redis, schedulerstate.DefaultTTL)
		}
		trigger := scheduler.New(station.NewLoader(database), runner, claims, scheduler.Config{
			RunHour: s.cfg.DailyRunHour,
		}, s.logger)
		s.trigger = trigger

		if s.cfg.LeaderElectionEnabled {
			electionCfg := leadership.DefaultConfig()
			if s.cfg.InstanceID != "" {
				electionCfg.InstanceID = s.cfg.InstanceID
			}
			s.election = leadership.NewElection(s.redis, electionCfg, s.logger)
			s.trigger = scheduler.NewLeaderAware(trigger, s.election, s.logger)
			s.logger.Info().
				Str("redis_addr", s.cfg.RedisAddr).
				Str("instance_id", electionCfg.InstanceID).
				Msg("leader election enabled for daily trigger")
		}
	}

	return nil
}

// initRedis connects the shared Redis client. Redis is optional unless leader
// election is enabled; without it the program log cache is disabled.
func (s *Server) initRedis() error {
	client := redis.NewClient(&redis.Options{
		Addr:         s.cfg.RedisAddr,
		Password:     s.cfg.RedisPassword,
		DB:           s.cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if s.cfg.SchedulerEnabled && s.cfg.LeaderElectionEnabled {
			return fmt.Errorf("leader election requires Redis at %s: %w", s.cfg.RedisAddr, err)
		}
		s.logger.Warn().Err(err).Str("addr", s.cfg.RedisAddr).Msg("Redis unavailable, running without program log cache")
		s.cache = cache.Disabled(s.logger)
		return nil
	}

	s.redis = client
	s.DeferClose(client.Close)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.ProgramLogTTL = s.cfg.ProgramLogCacheTTL
	s.cache = cache.NewWithClient(client, cacheCfg, s.logger)
	s.logger.Info().Str("addr", s.cfg.RedisAddr).Msg("Redis connected")
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.trigger != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.trigger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("daily trigger exited")
			}
		}()
	}

	if s.relay != nil {
		s.relay.Start(ctx)
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	if s.programLog != nil && s.cache != nil && s.cache.IsAvailable() {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached program logs when an hour is
// re-locked or an ad airing changes the station's rotation.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	locked := s.bus.Subscribe(events.EventPlaylistLocked)
	defer s.bus.Unsubscribe(events.EventPlaylistLocked, locked)
	aired := s.bus.Subscribe(events.EventAdAired)
	defer s.bus.Unsubscribe(events.EventAdAired, aired)

	s.logger.Info().Msg("cache invalidation listener started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload, ok := <-locked:
			if !ok {
				return
			}
			invalidateLocked(ctx, s.programLog, payload, s.logger)
		case payload, ok := <-aired:
			if !ok {
				return
			}
			invalidateAired(ctx, s.programLog, payload, s.logger)
		}
	}
}

type invalidator interface {
	Invalidate(ctx context.Context, stationID, date string, hour int) error
	InvalidateStation(ctx context.Context, stationID string) error
}

func invalidateLocked(ctx context.Context, target invalidator, payload events.Payload, logger zerolog.Logger) {
	stationID, _ := payload["station_id"].(string)
	date, _ := payload["date"].(string)
	hour, ok := payload["hour"].(int)
	if stationID == "" || date == "" || !ok {
		logger.Debug().Interface("payload", payload).Msg("ignoring malformed playlist.locked event")
		return
	}
	if err := target.Invalidate(ctx, stationID, date, hour); err != nil {
		logger.Warn().Err(err).Str("station", stationID).Str("date", date).Int("hour", hour).Msg("program log cache invalidation failed")
	}
}

// invalidateAired drops the station's cached hours; their ad picks depend on
// play counts.
func invalidateAired(ctx context.Context, target invalidator, payload events.Payload, logger zerolog.Logger) {
	stationID, _ := payload["station_id"].(string)
	if stationID == "" {
		logger.Debug().Interface("payload", payload).Msg("ignoring malformed ad.aired event")
		return
	}
	if err := target.InvalidateStation(ctx, stationID); err != nil {
		logger.Warn().Err(err).Str("station", stationID).Msg("program log cache invalidation failed")
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	if s.election != nil {
		s.router.Get("/api/v1/leader", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"leader":     s.election.IsLeader(),
				"instanceId": s.election.InstanceID(),
			})
		})
	}
	s.api.Routes(s.router)
}
