package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

// DevToolsProber checks session liveness through the DevTools HTTP
// endpoint. It implements pool.Prober.
//
// Classification of transport errors into "process is gone" lives here
// and nowhere else; the pool only ever sees the binary Alive/Dead
// verdict.
type DevToolsProber struct {
	client *http.Client
	logger *slog.Logger
}

// NewDevToolsProber creates a prober whose probes are bounded by the
// given timeout (default: 3s).
func NewDevToolsProber(timeout time.Duration, logger *slog.Logger) *DevToolsProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DevToolsProber{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Probe reports whether the session's process is still serving its
// DevTools endpoint. Any failure to get an answer is Dead: an unreachable
// browser is useless whether or not the process technically exists.
func (p *DevToolsProber) Probe(ctx context.Context, h pool.Handle) pool.Liveness {
	s, ok := h.(*Session)
	if !ok {
		return pool.Dead
	}
	if s.Exited() {
		p.logger.Debug("probe_process_exited",
			"session_id", s.id,
			"recent_stderr", strings.Join(s.RecentStderr(5), "\n"),
		)
		return pool.Dead
	}

	_, err := p.version(ctx, s)
	if err == nil {
		return pool.Alive
	}

	if isExitSignature(err) {
		p.logger.Debug("probe_exit_signature",
			"session_id", s.id,
			"error", err,
		)
	} else {
		p.logger.Warn("probe_failed_treating_dead",
			"session_id", s.id,
			"error", err,
		)
	}
	return pool.Dead
}

// Verify runs the strict attribute check for a mature session: the
// version endpoint must answer and report a browser identity and a
// websocket debugger URL. The pool skips Verify for freshly created
// sessions, whose attributes may not be populated yet.
func (p *DevToolsProber) Verify(ctx context.Context, h pool.Handle) error {
	s, ok := h.(*Session)
	if !ok {
		return fmt.Errorf("verify: unexpected handle type %T", h)
	}

	info, err := p.version(ctx, s)
	if err != nil {
		return fmt.Errorf("verify session %s: %w", s.id, err)
	}
	if info.Browser == "" {
		return fmt.Errorf("verify session %s: missing browser identity", s.id)
	}
	if info.WebSocketDebuggerURL == "" {
		return fmt.Errorf("verify session %s: missing debugger url", s.id)
	}
	return nil
}

type versionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func (p *DevToolsProber) version(ctx context.Context, s *Session) (*versionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.debugURL+"/json/version", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("version endpoint: status %d", resp.StatusCode)
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode version: %w", err)
	}
	return &info, nil
}

// isExitSignature reports whether an error matches the recognized
// signatures of a dead or dying browser process.
func isExitSignature(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range exitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// exitSignatures are the transport-level error substrings observed when a
// browser process has died under its endpoint.
var exitSignatures = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"use of closed network connection",
	"no such host",
	"target closed",
	"browser has been closed",
}
