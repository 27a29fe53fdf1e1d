/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process and installs it as the global logger.
func Setup(environment string) zerolog.Logger {
	return New(environment, os.Stdout)
}

// New builds a logger writing to out. Development gets human-readable console
// output at debug level; every other environment gets JSON lines at info level
// so the log shipper can parse job summaries.
func New(environment string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	writer := out
	if environment == "development" {
		level = zerolog.DebugLevel
		writer = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(writer).With().Timestamp().Str("service", "autopilot").Logger().Level(level)
	log.Logger = logger
	return logger
}
