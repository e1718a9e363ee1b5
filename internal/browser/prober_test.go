package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession builds a Session pointing at a test server, with the
// process considered still running.
func fakeSession(debugURL string) *Session {
	return &Session{
		id:        "session-test",
		debugURL:  debugURL,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
}

func devtoolsVersionHandler(browser, wsURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"Browser": %q, "Protocol-Version": "1.3", "webSocketDebuggerUrl": %q}`,
			browser, wsURL)
	}
}

// =============================================================================
// Probe
// =============================================================================

func TestProbeAliveEndpoint(t *testing.T) {
	srv := httptest.NewServer(devtoolsVersionHandler("Chromium/126.0", "ws://x"))
	defer srv.Close()

	p := NewDevToolsProber(time.Second, testLogger())
	if got := p.Probe(context.Background(), fakeSession(srv.URL)); got != pool.Alive {
		t.Errorf("Probe = %v, want Alive", got)
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens anymore

	p := NewDevToolsProber(time.Second, testLogger())
	if got := p.Probe(context.Background(), fakeSession(url)); got != pool.Dead {
		t.Errorf("Probe = %v, want Dead", got)
	}
}

func TestProbeExitedProcessSkipsNetwork(t *testing.T) {
	s := fakeSession("http://127.0.0.1:1") // would fail if dialed
	s.exited.Store(true)

	p := NewDevToolsProber(time.Second, testLogger())
	if got := p.Probe(context.Background(), s); got != pool.Dead {
		t.Errorf("Probe = %v, want Dead", got)
	}
}

func TestProbeForeignHandleType(t *testing.T) {
	p := NewDevToolsProber(time.Second, testLogger())
	if got := p.Probe(context.Background(), nil); got != pool.Dead {
		t.Errorf("Probe = %v, want Dead for foreign handle", got)
	}
}

// =============================================================================
// Verify
// =============================================================================

func TestVerifyMatureAttributes(t *testing.T) {
	tests := []struct {
		name    string
		browser string
		wsURL   string
		wantErr bool
	}{
		{"complete attributes", "Chromium/126.0", "ws://devtools", false},
		{"missing browser identity", "", "ws://devtools", true},
		{"missing debugger url", "Chromium/126.0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(devtoolsVersionHandler(tt.browser, tt.wsURL))
			defer srv.Close()

			p := NewDevToolsProber(time.Second, testLogger())
			err := p.Verify(context.Background(), fakeSession(srv.URL))
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Error Classification
// =============================================================================

func TestIsExitSignature(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"deadline", context.DeadlineExceeded, true},
		{"connection refused", errors.New(`Get "http://127.0.0.1:9222": dial tcp: connect: connection refused`), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed connection", errors.New("use of closed network connection"), true},
		{"unrelated error", errors.New("invalid character 'x' looking for beginning of value"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExitSignature(tt.err); got != tt.want {
				t.Errorf("isExitSignature(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
