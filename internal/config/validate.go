package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	minUIPort = 1025
	maxUIPort = 65535
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	if cfg.UIPort < minUIPort || cfg.UIPort > maxUIPort {
		errs = append(errs, fmt.Errorf("ui_port: must be between %d and %d, got %d", minUIPort, maxUIPort, cfg.UIPort))
	}
	if strings.TrimSpace(cfg.Host) == "" {
		errs = append(errs, errors.New("host: must not be empty"))
	}
	if err := validateDuration("connect_timeout", cfg.ConnectTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := validateDuration("transact_timeout", cfg.TransactTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: unknown level %q", cfg.Log.Level))
		}
	}

	return errors.Join(errs...)
}

func validateDuration(key, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: must be >= 0, got %q", key, raw)
	}
	return nil
}
