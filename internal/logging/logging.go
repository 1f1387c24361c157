// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
)

// Setup points the global logger at w using the configured level and format.
func Setup(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	zerolog.SetGlobalLevel(cfg.Level)
	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
