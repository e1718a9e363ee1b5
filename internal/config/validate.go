package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.MaxSessions < 1 {
		errs = append(errs, ValidationError{
			Field:   "max_sessions",
			Message: "must be at least 1",
		})
	}

	if cfg.IdleTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "idle_timeout",
			Message: "must be positive",
		})
	}

	if cfg.SweepInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sweep_interval",
			Message: "must be positive",
		})
	}

	// A sweep interval longer than the idle timeout delays eviction far
	// past the configured limit.
	if cfg.SweepInterval > 0 && cfg.IdleTimeout > 0 && cfg.SweepInterval > cfg.IdleTimeout {
		errs = append(errs, ValidationError{
			Field:   "sweep_interval",
			Message: fmt.Sprintf("must not exceed idle_timeout (%s)", cfg.IdleTimeout),
		})
	}

	if cfg.BrowserPath == "" {
		errs = append(errs, ValidationError{
			Field:   "browser_path",
			Message: "browser binary path is required",
		})
	}

	if cfg.WindowWidth < 0 || cfg.WindowHeight < 0 {
		errs = append(errs, ValidationError{
			Field:   "window_size",
			Message: "dimensions must not be negative",
		})
	}

	if cfg.StartupTimeout < time.Second {
		errs = append(errs, ValidationError{
			Field:   "startup_timeout",
			Message: "must be at least 1s",
		})
	}

	if cfg.StopTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "stop_timeout",
			Message: "must be positive",
		})
	}

	if cfg.ProbeTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "probe_timeout",
			Message: "must be positive",
		})
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf(`must be "json" or "text" (got %q)`, cfg.LogFormat),
		})
	}

	return errors.Join(errs...)
}
