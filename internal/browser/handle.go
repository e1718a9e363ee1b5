// Package browser provides the browser-backed implementations of the
// pool's capability contracts: launching headless browser processes
// (Provisioner), deriving tabs from them (ExecContext) and probing
// process liveness over the DevTools HTTP endpoint (Prober).
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/logging"
)

// Session wraps one external headless-browser process together with its
// DevTools debugging endpoint. It implements pool.Handle.
//
// A Session is exclusively owned by one pool slot. Once its process is
// dead the Session is never revived; the pool replaces it wholesale.
type Session struct {
	id          string
	cmd         *exec.Cmd
	debugURL    string
	userDataDir string
	createdAt   time.Time

	stderr *logging.StderrHandler

	// exited flips when the reaper goroutine collects the process;
	// done closes at the same moment so Destroy can wait on it.
	exited atomic.Bool
	done   chan struct{}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// DebugURL returns the base URL of the DevTools HTTP endpoint,
// e.g. "http://127.0.0.1:39113".
func (s *Session) DebugURL() string {
	return s.debugURL
}

// Pid returns the browser process ID, or 0 if the process never started.
func (s *Session) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// CreatedAt returns when the process was launched.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Exited reports whether the browser process has already exited. This is
// the cheapest possible liveness signal; the prober consults it before
// doing any network round trip.
func (s *Session) Exited() bool {
	return s.exited.Load()
}

// RecentStderr returns the last n lines the browser wrote to stderr.
func (s *Session) RecentStderr(n int) []string {
	if s.stderr == nil {
		return nil
	}
	return s.stderr.RecentLines(n)
}

// Tab is one DevTools page target within a Session. It implements
// pool.ExecContext. A Tab is invalid whenever its Session's process is
// dead; the pool re-checks validity on every acquisition.
type Tab struct {
	id      string
	session *Session
	wsURL   string
	client  *http.Client
}

// ID returns the DevTools target ID.
func (t *Tab) ID() string {
	return t.id
}

// Session returns the owning session.
func (t *Tab) Session() *Session {
	return t.session
}

// WebSocketURL returns the DevTools websocket URL executors attach to.
func (t *Tab) WebSocketURL() string {
	return t.wsURL
}

// Check performs the lightweight validity check: the target must still be
// listed by the session's DevTools endpoint. No page navigation, no
// websocket attach.
func (t *Tab) Check(ctx context.Context) error {
	if t.session == nil || t.session.Exited() {
		return fmt.Errorf("tab %s: session process exited", t.id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.session.debugURL+"/json/list", nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("tab %s: list targets: %w", t.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tab %s: list targets: status %d", t.id, resp.StatusCode)
	}

	var targets []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return fmt.Errorf("tab %s: decode targets: %w", t.id, err)
	}

	for _, tgt := range targets {
		if tgt.ID == t.id {
			return nil
		}
	}
	return fmt.Errorf("tab %s: target no longer listed", t.id)
}
