package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/config"
)

// Setup configures the global logger: console output in development, JSON otherwise,
// optionally teed into Logdy.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	if cfg.LogdyEnabled {
		w, _, err := StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy disabled")
		} else {
			out = zerolog.MultiLevelWriter(out, w)
		}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("instance_id", cfg.InstanceID).Str("service", service).Logger()
}

func WithStream(base zerolog.Logger, streamID string) zerolog.Logger {
	return base.With().Str("stream_id", streamID).Logger()
}
