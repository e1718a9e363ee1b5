// Package main provides the go-browser-session-pool CLI entry point.
//
// go-browser-session-pool is a daemon that maintains a bounded pool of
// headless browser sessions, one per requester identity, reusing live
// sessions across tasks and rebuilding dead ones transparently.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-browser-session-pool/internal/config"
	"github.com/randomizedcoder/go-browser-session-pool/internal/logging"
	"github.com/randomizedcoder/go-browser-session-pool/internal/orchestrator"
	"github.com/randomizedcoder/go-browser-session-pool/internal/preflight"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-browser-session-pool
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-browser-session-pool %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	slog.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	orch := orchestrator.New(cfg, version, logger)

	// Handle --print-cmd mode
	if cfg.PrintCmd {
		fmt.Println("# Browser command that would be run for each session:")
		fmt.Println()
		fmt.Println(orch.Launcher().CommandString())
		return 0
	}

	// Preflight checks
	if !cfg.SkipPreflight {
		result := preflight.RunAll(cfg.MaxSessions, cfg.BrowserPath)
		if !cfg.TUIEnabled {
			preflight.PrintResults(result)
		}
		if !result.Passed {
			fmt.Fprintln(os.Stderr, "Preflight checks failed (use -skip-preflight to override)")
			return 1
		}
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"max_sessions", cfg.MaxSessions,
		"idle_timeout", cfg.IdleTimeout.String(),
		"sweep_interval", cfg.SweepInterval.String(),
		"browser", cfg.BrowserPath,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	if err := orch.Run(context.Background()); err != nil {
		logger.Error("daemon_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    go-browser-session-pool                        ║")
	fmt.Println("║        Per-User Headless Browser Session Pooling Daemon           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Capacity:    %d sessions\n", cfg.MaxSessions)
	fmt.Printf("  Idle:        evict after %s (sweep every %s)\n", cfg.IdleTimeout, cfg.SweepInterval)
	fmt.Printf("  Browser:     %s\n", cfg.BrowserPath)
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Printf("  Status:      http://%s/status\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
