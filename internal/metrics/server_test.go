package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

type fakeStatusSource struct {
	status pool.Status
}

func (f *fakeStatusSource) Status() pool.Status { return f.status }

type fakeSweeper struct {
	evicted int
	calls   int
}

func (f *fakeSweeper) Sweep(ctx context.Context) int {
	f.calls++
	return f.evicted
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, status StatusSource, sweeper Sweeper) *httptest.Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", status, sweeper, discardLogger())
	srv := httptest.NewServer(s.server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, path := range []string{"/health", "/healthz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), "ok") {
			t.Errorf("GET %s body = %q, want ok", path, body)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	source := &fakeStatusSource{status: pool.Status{
		Capacity:    10,
		Occupancy:   2,
		IdleTimeout: 30 * time.Minute,
	}}
	srv := newTestServer(t, source, nil)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var status pool.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Capacity != 10 || status.Occupancy != 2 {
		t.Errorf("status = %+v, want capacity 10 occupancy 2", status)
	}
}

func TestStatusEndpointWithoutSource(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestSweepEndpoint(t *testing.T) {
	sweeper := &fakeSweeper{evicted: 3}
	srv := newTestServer(t, nil, sweeper)

	resp, err := http.Post(srv.URL+"/sweep", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /sweep: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["evicted"] != 3 {
		t.Errorf("evicted = %d, want 3", result["evicted"])
	}
	if sweeper.calls != 1 {
		t.Errorf("sweeper called %d times, want 1", sweeper.calls)
	}
}

func TestSweepEndpointRejectsGet(t *testing.T) {
	sweeper := &fakeSweeper{}
	srv := newTestServer(t, nil, sweeper)

	resp, err := http.Get(srv.URL + "/sweep")
	if err != nil {
		t.Fatalf("GET /sweep: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if sweeper.calls != 0 {
		t.Errorf("sweeper called %d times on GET, want 0", sweeper.calls)
	}
}
