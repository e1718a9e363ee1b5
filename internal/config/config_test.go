package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxSessions != 10 {
		t.Errorf("MaxSessions = %d, want 10", cfg.MaxSessions)
	}
	if cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("IdleTimeout = %v, want 30m", cfg.IdleTimeout)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
	if cfg.BrowserPath == "" {
		t.Error("BrowserPath is empty")
	}

	// Defaults must validate cleanly.
	if err := Validate(cfg); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantField string
	}{
		{
			name:      "zero sessions",
			mutate:    func(cfg *Config) { cfg.MaxSessions = 0 },
			wantField: "max_sessions",
		},
		{
			name:      "negative idle timeout",
			mutate:    func(cfg *Config) { cfg.IdleTimeout = -time.Second },
			wantField: "idle_timeout",
		},
		{
			name:      "zero sweep interval",
			mutate:    func(cfg *Config) { cfg.SweepInterval = 0 },
			wantField: "sweep_interval",
		},
		{
			name: "sweep slower than idle timeout",
			mutate: func(cfg *Config) {
				cfg.IdleTimeout = time.Minute
				cfg.SweepInterval = 2 * time.Minute
			},
			wantField: "sweep_interval",
		},
		{
			name:      "missing browser path",
			mutate:    func(cfg *Config) { cfg.BrowserPath = "" },
			wantField: "browser_path",
		},
		{
			name:      "startup timeout too short",
			mutate:    func(cfg *Config) { cfg.StartupTimeout = 100 * time.Millisecond },
			wantField: "startup_timeout",
		},
		{
			name:      "zero probe timeout",
			mutate:    func(cfg *Config) { cfg.ProbeTimeout = 0 },
			wantField: "probe_timeout",
		},
		{
			name:      "bad log format",
			mutate:    func(cfg *Config) { cfg.LogFormat = "yaml" },
			wantField: "log_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate returned nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention field %q", err, tt.wantField)
			}
		})
	}
}

func TestValidateJoinsMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 0
	cfg.BrowserPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate returned nil")
	}

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("error chain does not contain a ValidationError: %v", err)
	}
	for _, field := range []string{"max_sessions", "browser_path"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("joined error missing %q: %v", field, err)
		}
	}
}

func TestParseWindowSize(t *testing.T) {
	tests := []struct {
		input   string
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{"800x600", 800, 600, false},
		{"1920", 0, 0, true},
		{"wide", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			w, h, err := parseWindowSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (w != tt.wantW || h != tt.wantH) {
				t.Errorf("parsed %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
