// Package logging builds the diagnostic logger. Command output never goes
// through it.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/lydakis/masq/internal/config"
)

const (
	EnvLogLevel     = "MASQ_LOG_LEVEL"
	EnvLogTimestamp = "MASQ_LOG_TIMESTAMP"
	EnvLogNoColor   = "MASQ_LOG_NOCOLOR"
)

// New returns a console logger writing to w. Environment variables win
// over cfg; colour is off unless w is a terminal.
func New(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	applyEnvOverrides(&cfg)

	level, ok := parseLevel(cfg.Level)
	if !ok {
		level = zerolog.WarnLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor || !isTerminal(w),
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	logger := zerolog.New(output).Level(level)
	if cfg.Timestamp {
		logger = logger.With().Timestamp().Logger()
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func applyEnvOverrides(cfg *config.LogConfig) {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		if _, ok := parseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.WarnLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
