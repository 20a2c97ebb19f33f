/*-------------------------------------------------------------------------
 *
 * logging.go
 *    Logging initialization for PortalAgent
 *
 * Configures the global zerolog logger from configuration (level and
 * output format).
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/metrics/logging.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var baseLogger zerolog.Logger

/* InitLogging initializes the global logger with the given level and format */
func InitLogging(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.EqualFold(format, "console") {
		baseLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		baseLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	log.Logger = baseLogger
}

/* Logger returns the configured base logger */
func Logger() zerolog.Logger {
	return baseLogger
}
