package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/logging"
	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

// LauncherConfig holds configuration for browser process launches.
type LauncherConfig struct {
	// BinaryPath is the path to the browser binary.
	BinaryPath string

	// Headless runs the browser without a display.
	Headless bool

	// WindowWidth and WindowHeight set the initial window size.
	WindowWidth  int
	WindowHeight int

	// UserAgent overrides the browser's User-Agent header when non-empty.
	UserAgent string

	// UserDataRoot is the directory under which per-session profile
	// directories are created. Empty means the system temp dir.
	UserDataRoot string

	// ExtraArgs are appended verbatim after the built-in flags.
	ExtraArgs []string

	// StartupTimeout bounds the wait for the DevTools endpoint to come up.
	StartupTimeout time.Duration

	// StopTimeout is the grace period between SIGTERM and SIGKILL.
	StopTimeout time.Duration

	// VerboseStderr logs every browser stderr line instead of only
	// warnings.
	VerboseStderr bool
}

// DefaultLauncherConfig returns a LauncherConfig with sensible defaults.
func DefaultLauncherConfig() *LauncherConfig {
	return &LauncherConfig{
		BinaryPath:     "chromium",
		Headless:       true,
		WindowWidth:    1920,
		WindowHeight:   1080,
		StartupTimeout: 15 * time.Second,
		StopTimeout:    5 * time.Second,
	}
}

// Launcher creates, derives from and destroys browser sessions. It
// implements pool.Provisioner.
type Launcher struct {
	config *LauncherConfig
	logger *slog.Logger
	client *http.Client
	seq    atomic.Int64
}

// NewLauncher creates a launcher with the given configuration.
func NewLauncher(cfg *LauncherConfig, logger *slog.Logger) *Launcher {
	if cfg == nil {
		cfg = DefaultLauncherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Create launches a browser process and waits until its DevTools endpoint
// answers. On any failure the process and its profile directory are
// cleaned up before the error is returned.
func (l *Launcher) Create(ctx context.Context) (pool.Handle, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("allocate debug port: %w", err)
	}

	dir, err := os.MkdirTemp(l.config.UserDataRoot, "browser-session-*")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	args := l.buildArgs(port, dir)
	// Deliberately not CommandContext: the session must outlive the
	// acquisition context that created it.
	cmd := exec.Command(l.config.BinaryPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // isolate the browser and its children in one group
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("start %s: %w", l.config.BinaryPath, err)
	}

	sessionID := fmt.Sprintf("session-%d-%d", l.seq.Add(1), cmd.Process.Pid)
	stderr := logging.NewStderrHandler(sessionID, l.logger, l.config.VerboseStderr)
	go stderr.HandleReader(stderrPipe)

	s := &Session{
		id:          sessionID,
		cmd:         cmd,
		debugURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		userDataDir: dir,
		createdAt:   time.Now(),
		stderr:      stderr,
		done:        make(chan struct{}),
	}

	// Reap the process whenever it exits so it never zombies.
	go func() {
		cmd.Wait()
		s.exited.Store(true)
		close(s.done)
	}()

	if err := l.awaitReady(ctx, s); err != nil {
		l.Destroy(context.WithoutCancel(ctx), s)
		return nil, fmt.Errorf("session %s not ready: %w", s.id, err)
	}

	l.logger.Debug("browser_launched",
		"session_id", s.id,
		"pid", s.Pid(),
		"debug_url", s.debugURL,
	)
	return s, nil
}

// Derive opens a fresh blank tab in the session and returns it as the
// execution context.
func (l *Launcher) Derive(ctx context.Context, h pool.Handle) (pool.ExecContext, error) {
	s, ok := h.(*Session)
	if !ok {
		return nil, fmt.Errorf("derive: unexpected handle type %T", h)
	}
	if s.Exited() {
		return nil, fmt.Errorf("derive: session %s process exited", s.id)
	}

	// PUT per the DevTools HTTP protocol; GET /json/new was removed.
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.debugURL+"/json/new?about:blank", nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("derive: new target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("derive: new target: status %d", resp.StatusCode)
	}

	var target struct {
		ID                   string `json:"id"`
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("derive: decode target: %w", err)
	}
	if target.ID == "" {
		return nil, fmt.Errorf("derive: target has no id")
	}

	l.logger.Debug("tab_created",
		"session_id", s.id,
		"target_id", target.ID,
	)
	return &Tab{
		id:      target.ID,
		session: s,
		wsURL:   target.WebSocketDebuggerURL,
		client:  l.client,
	}, nil
}

// Destroy stops the session's process and removes its profile directory.
// It first sends SIGTERM to the process group, then SIGKILL after the
// stop timeout. Safe to call on a session whose process already died.
func (l *Launcher) Destroy(ctx context.Context, h pool.Handle) error {
	s, ok := h.(*Session)
	if !ok {
		return fmt.Errorf("destroy: unexpected handle type %T", h)
	}
	defer func() {
		if s.userDataDir != "" {
			os.RemoveAll(s.userDataDir)
		}
	}()

	if s.cmd == nil || s.cmd.Process == nil || s.Exited() {
		return nil
	}

	pid := s.cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		s.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
	case <-time.After(l.config.StopTimeout):
	}

	l.logger.Warn("force_killing_browser",
		"session_id", s.id,
		"pid", pid,
	)
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		s.cmd.Process.Kill()
	}
	<-s.done
	return nil
}

// CommandString returns the full launch command for one session, for
// display purposes. The port and profile directory are placeholders since
// both are allocated per launch.
func (l *Launcher) CommandString() string {
	args := l.buildArgs(0, "<profile-dir>")
	return l.config.BinaryPath + " " + strings.Join(args, " ")
}

// buildArgs constructs the browser command-line arguments.
func (l *Launcher) buildArgs(port int, userDataDir string) []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(port),
		"--user-data-dir=" + userDataDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-sync",
		"--mute-audio",
	}

	if l.config.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if l.config.WindowWidth > 0 && l.config.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d",
			l.config.WindowWidth, l.config.WindowHeight))
	}
	if l.config.UserAgent != "" {
		args = append(args, "--user-agent="+l.config.UserAgent)
	}

	args = append(args, l.config.ExtraArgs...)
	return args
}

// awaitReady polls the DevTools version endpoint until it answers or the
// startup timeout elapses.
func (l *Launcher) awaitReady(ctx context.Context, s *Session) error {
	deadline := time.Now().Add(l.config.StartupTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.Exited() {
			return fmt.Errorf("process exited during startup")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.debugURL+"/json/version", nil)
		if err != nil {
			return err
		}
		resp, err := l.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("devtools endpoint not ready after %s", l.config.StartupTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// freePort asks the kernel for an unused loopback TCP port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
