// Package orchestrator assembles the pool daemon: browser launcher,
// prober, session pool, cleanup scheduler, metrics and the optional
// terminal dashboard. It also provides the task-execution facade that
// callers use instead of driving the pool primitives directly.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-browser-session-pool/internal/browser"
	"github.com/randomizedcoder/go-browser-session-pool/internal/config"
	"github.com/randomizedcoder/go-browser-session-pool/internal/identity"
	"github.com/randomizedcoder/go-browser-session-pool/internal/logging"
	"github.com/randomizedcoder/go-browser-session-pool/internal/metrics"
	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
	"github.com/randomizedcoder/go-browser-session-pool/internal/stats"
	"github.com/randomizedcoder/go-browser-session-pool/internal/task"
	"github.com/randomizedcoder/go-browser-session-pool/internal/tui"
)

// shutdownTimeout bounds the drain of live browser processes on exit.
const shutdownTimeout = 30 * time.Second

// occupancyInterval is how often the per-state occupancy gauges refresh.
const occupancyInterval = 2 * time.Second

// Orchestrator owns the daemon's components and their lifecycles.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	launcher  *browser.Launcher
	pool      *pool.Pool
	cleaner   *pool.Cleaner
	tracker   *stats.Tracker
	collector *metrics.Collector
	server    *metrics.Server
}

// New wires the daemon components together.
func New(cfg *config.Config, version string, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		tracker: stats.NewTracker(),
	}

	o.launcher = browser.NewLauncher(&browser.LauncherConfig{
		BinaryPath:     cfg.BrowserPath,
		Headless:       cfg.Headless,
		WindowWidth:    cfg.WindowWidth,
		WindowHeight:   cfg.WindowHeight,
		UserAgent:      cfg.UserAgent,
		UserDataRoot:   cfg.UserDataRoot,
		ExtraArgs:      cfg.BrowserArgs,
		StartupTimeout: cfg.StartupTimeout,
		StopTimeout:    cfg.StopTimeout,
		VerboseStderr:  cfg.Verbose,
	}, logging.WithComponent(logger, "launcher"))

	o.collector = metrics.NewCollector(metrics.CollectorConfig{
		Version:     version,
		BrowserPath: cfg.BrowserPath,
		Capacity:    cfg.MaxSessions,
	})

	prober := browser.NewDevToolsProber(cfg.ProbeTimeout,
		logging.WithComponent(logger, "prober"))
	factory := task.NewFactory(logging.WithComponent(logger, "executors"))

	o.pool = pool.New(pool.Config{
		Provisioner: o.launcher,
		Prober:      prober,
		Executors:   factory,
		Logger:      logging.WithComponent(logger, "pool"),
		MaxSlots:    cfg.MaxSessions,
		IdleTimeout: cfg.IdleTimeout,
		Callbacks: pool.Callbacks{
			OnSessionCreated: func(string) { o.collector.SessionCreated() },
			OnSessionReused:  func(string) { o.collector.SessionReused() },
			OnSessionRebuilt: func(string) { o.collector.SessionRebuilt() },
			OnSlotEvicted: func(_, reason string) {
				o.collector.SlotEvicted(reason)
			},
			OnProbe: func(_ string, result pool.Liveness) {
				o.collector.ProbeResult(result.String())
			},
			OnTaskFinished: func(_ string, boundFor time.Duration) {
				o.tracker.RecordTask(boundFor)
				o.collector.ObserveTask(boundFor)
			},
		},
	})

	o.cleaner = pool.NewCleaner(o.pool, cfg.SweepInterval,
		logging.WithComponent(logger, "cleaner"))
	o.server = metrics.NewServer(cfg.MetricsAddr, o.pool, o.cleaner,
		logging.WithComponent(logger, "metrics"))

	return o
}

// Pool returns the underlying session pool.
func (o *Orchestrator) Pool() *pool.Pool {
	return o.pool
}

// Launcher returns the browser launcher, used by -print-cmd.
func (o *Orchestrator) Launcher() *browser.Launcher {
	return o.launcher
}

// ExecuteTask resolves the requester to an owner key, acquires that
// owner's session, binds a fresh executor and runs fn with it. The slot
// is released when fn returns, even on error, so an interrupted task
// never leaves its slot busy.
func (o *Orchestrator) ExecuteTask(ctx context.Context, meta identity.RequestMeta, fn func(ctx context.Context, exec pool.Executor) error) error {
	key := identity.Resolve(meta)

	start := time.Now()
	slot, err := o.pool.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire session for %s: %w", key, err)
	}
	o.tracker.RecordAcquire(time.Since(start))
	o.collector.ObserveAcquire(time.Since(start))

	// Release pairs with the Acquire above, dropping the slot's claim
	// even when the bind below fails.
	defer o.pool.Release(slot)

	exec, err := o.pool.BindExecutor(ctx, slot)
	if err != nil {
		return fmt.Errorf("bind executor for %s: %w", key, err)
	}

	o.collector.TaskStarted()
	return fn(ctx, exec)
}

// Run starts the daemon and blocks until the context is cancelled or an
// interrupt arrives. On exit it drains all sessions.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := o.server.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	go o.cleaner.Run(runCtx)
	go o.publishOccupancy(runCtx)

	o.logger.Info("pool_daemon_started",
		"max_sessions", o.cfg.MaxSessions,
		"idle_timeout", o.cfg.IdleTimeout.String(),
		"sweep_interval", o.cfg.SweepInterval.String(),
		"metrics_addr", o.cfg.MetricsAddr,
	)

	if o.cfg.TUIEnabled {
		if err := o.runTUI(runCtx, cancel); err != nil {
			o.logger.Error("tui_failed", "error", err)
		}
	} else {
		o.waitForSignal(runCtx)
	}

	return o.shutdown()
}

// runTUI runs the dashboard until the user quits or the context ends.
func (o *Orchestrator) runTUI(ctx context.Context, cancel context.CancelFunc) error {
	model := tui.New(tui.Config{
		MetricsAddr:   o.cfg.MetricsAddr,
		StatusSource:  o.pool,
		LatencySource: o.tracker,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		<-ctx.Done()
		program.Send(tui.QuitMsg{})
	}()
	defer cancel()

	_, err := program.Run()
	return err
}

// waitForSignal blocks until SIGINT/SIGTERM or context cancellation.
func (o *Orchestrator) waitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		o.logger.Info("signal_received", "signal", sig.String())
	case <-ctx.Done():
	}
}

// publishOccupancy refreshes the per-state occupancy gauges.
func (o *Orchestrator) publishOccupancy(ctx context.Context) {
	ticker := time.NewTicker(occupancyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := o.pool.Status()
			byState := make(map[string]int, 5)
			for _, slot := range status.Slots {
				byState[slot.State]++
			}
			o.collector.SetOccupancy(byState)
		}
	}
}

// shutdown stops the cleaner (draining the pool once) and the metrics
// server, bounded by the shutdown timeout.
func (o *Orchestrator) shutdown() error {
	o.logger.Info("pool_daemon_stopping", "occupancy", o.pool.Len())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	o.cleaner.Shutdown(ctx)

	if err := o.server.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_shutdown_failed", "error", err)
	}

	o.logger.Info("pool_daemon_stopped")
	return nil
}
