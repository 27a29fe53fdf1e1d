/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/telemetry"
	"gorm.io/gorm"
)

const startTimeKey = "telemetry:start_time"

// RegisterCallbacks records query duration and error metrics for every CRUD operation.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	hooks := []struct {
		op       string
		register func(before, after string) error
	}{
		{"query", func(before, after string) error {
			if err := cb.Query().Before("gorm:query").Register(before, beforeCallback); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register(after, afterCallback("query"))
		}},
		{"create", func(before, after string) error {
			if err := cb.Create().Before("gorm:create").Register(before, beforeCallback); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register(after, afterCallback("create"))
		}},
		{"update", func(before, after string) error {
			if err := cb.Update().Before("gorm:update").Register(before, beforeCallback); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register(after, afterCallback("update"))
		}},
		{"delete", func(before, after string) error {
			if err := cb.Delete().Before("gorm:delete").Register(before, beforeCallback); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register(after, afterCallback("delete"))
		}},
	}

	for _, h := range hooks {
		if err := h.register("telemetry:before_"+h.op, "telemetry:after_"+h.op); err != nil {
			return err
		}
	}
	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, table).Inc()
		}
	}
}

// UpdateConnectionMetrics publishes connection pool gauges.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	telemetry.DatabaseConnectionsOpen.Set(float64(stats.OpenConnections))
	telemetry.DatabaseConnectionsInUse.Set(float64(stats.InUse))
}
