// Package config provides configuration management for
// go-browser-session-pool.
package config

import "time"

// Config holds all configuration options for the pool daemon.
type Config struct {
	// Pool
	MaxSessions   int           `json:"max_sessions"`
	IdleTimeout   time.Duration `json:"idle_timeout"`
	SweepInterval time.Duration `json:"sweep_interval"`

	// Browser
	BrowserPath    string        `json:"browser_path"`
	Headless       bool          `json:"headless"`
	WindowWidth    int           `json:"window_width"`
	WindowHeight   int           `json:"window_height"`
	UserAgent      string        `json:"user_agent"`
	UserDataRoot   string        `json:"user_data_root"`
	BrowserArgs    []string      `json:"browser_args"`
	StartupTimeout time.Duration `json:"startup_timeout"`
	StopTimeout    time.Duration `json:"stop_timeout"`

	// Probing
	ProbeTimeout time.Duration `json:"probe_timeout"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Dashboard
	TUIEnabled bool `json:"tui_enabled"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Pool
		MaxSessions:   10,
		IdleTimeout:   30 * time.Minute,
		SweepInterval: 5 * time.Minute,

		// Browser
		BrowserPath:    "chromium",
		Headless:       true,
		WindowWidth:    1920,
		WindowHeight:   1080,
		StartupTimeout: 15 * time.Second,
		StopTimeout:    5 * time.Second,

		// Probing
		ProbeTimeout: 3 * time.Second,

		// Observability
		MetricsAddr: "0.0.0.0:17091",
		Verbose:     false,
		LogFormat:   "json",

		// Dashboard
		TUIEnabled: false,
	}
}
