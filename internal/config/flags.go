package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// argList is a custom flag type for repeatable -browser-arg flags.
type argList []string

func (a *argList) String() string {
	return strings.Join(*a, ", ")
}

func (a *argList) Set(value string) error {
	*a = append(*a, value)
	return nil
}

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()
	var browserArgs argList

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `go-browser-session-pool - per-user browser session pooling daemon

Usage:
  go-browser-session-pool [flags]

Pool Flags:
`)
		printFlagCategory([]string{"max-sessions", "idle-timeout", "sweep-interval"})

		fmt.Fprintf(os.Stderr, "\nBrowser:\n")
		printFlagCategory([]string{"browser", "headless", "window-size", "user-agent",
			"user-data-root", "browser-arg", "startup-timeout", "stop-timeout"})

		fmt.Fprintf(os.Stderr, "\nProbing:\n")
		printFlagCategory([]string{"probe-timeout"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nDashboard:\n")
		printFlagCategory([]string{"tui"})

		fmt.Fprintf(os.Stderr, "\nSafety & Diagnostics:\n")
		printFlagCategory([]string{"print-cmd", "skip-preflight"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Default pool: 10 sessions, 30m idle timeout
  go-browser-session-pool

  # Small pool with aggressive cleanup
  go-browser-session-pool -max-sessions 3 -idle-timeout 5m -sweep-interval 1m

  # Show the browser launch command and exit
  go-browser-session-pool --print-cmd

`)
	}

	var windowSize string

	// Pool flags
	flag.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "Maximum concurrent browser sessions")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Evict sessions idle longer than this")
	flag.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Background cleanup interval")

	// Browser
	flag.StringVar(&cfg.BrowserPath, "browser", cfg.BrowserPath, "Path to browser binary")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser headless (use -headless=false to disable)")
	flag.StringVar(&windowSize, "window-size", "", "Browser window size as WIDTHxHEIGHT (default 1920x1080)")
	flag.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "Browser User-Agent override")
	flag.StringVar(&cfg.UserDataRoot, "user-data-root", cfg.UserDataRoot, "Directory for per-session profile dirs (default: system temp)")
	flag.Var(&browserArgs, "browser-arg", "Extra browser command-line flag (can repeat)")
	flag.DurationVar(&cfg.StartupTimeout, "startup-timeout", cfg.StartupTimeout, "Max wait for the DevTools endpoint on launch")
	flag.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "Grace period between SIGTERM and SIGKILL")

	// Probing
	flag.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Liveness probe timeout")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Dashboard
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Safety & Diagnostics (double-dash convention)
	flag.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print browser launch command and exit")
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	flag.Parse()

	cfg.BrowserArgs = browserArgs

	if windowSize != "" {
		w, h, err := parseWindowSize(windowSize)
		if err != nil {
			return nil, err
		}
		cfg.WindowWidth = w
		cfg.WindowHeight = h
	}

	return cfg, nil
}

// parseWindowSize parses "WIDTHxHEIGHT".
func parseWindowSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("window-size: expected WIDTHxHEIGHT, got %q", s)
	}
	return w, h, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" && f.DefValue != "[]" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
