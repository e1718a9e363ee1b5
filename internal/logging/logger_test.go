package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},        // Default
		{"invalid", slog.LevelInfo}, // Default for unknown
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := parseLevel(tc.input)
			if result != tc.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	testCases := []string{"json", "text", "JSON", "", "invalid"}

	for _, format := range testCases {
		t.Run(format, func(t *testing.T) {
			if logger := NewLogger(format, "info", false); logger == nil {
				t.Error("NewLogger returned nil")
			}
		})
	}
}

func TestNewHandlerFormatFallback(t *testing.T) {
	var buf bytes.Buffer

	// Unknown formats fall back to JSON rather than silencing output.
	logger := NewLoggerWithWriter(&buf, "yaml", "info")
	logger.Info("session_created", "owner_key", "auth_1a2b3c4d5e6f")

	out := buf.String()
	if !strings.Contains(out, `"owner_key":"auth_1a2b3c4d5e6f"`) {
		t.Errorf("fallback output is not JSON: %s", out)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLoggerWithWriter(&buf, "text", "error")
	logger.Debug("debug message")
	if strings.Contains(buf.String(), "debug message") {
		t.Error("error-level logger logged a debug message")
	}

	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("error-level logger dropped an error message")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	logger := WithComponent(NewLoggerWithWriter(&buf, "json", "info"), "pool")
	logger.Info("slot_evicted")

	out := buf.String()
	if !strings.Contains(out, `"component":"pool"`) {
		t.Errorf("output missing component attr: %s", out)
	}
}

// =============================================================================
// Stderr Handler
// =============================================================================

func TestStderrHandlerBuffersRecentLines(t *testing.T) {
	h := NewStderrHandler("session-1", NewLoggerWithWriter(&bytes.Buffer{}, "text", "error"), false)

	h.HandleLine("first")
	h.HandleLine("second")
	h.HandleLine("third")

	lines := h.RecentLines(2)
	if len(lines) != 2 || lines[0] != "second" || lines[1] != "third" {
		t.Errorf("RecentLines(2) = %v, want [second third]", lines)
	}
}

func TestStderrHandlerWrapsBuffer(t *testing.T) {
	h := NewStderrHandler("session-1", NewLoggerWithWriter(&bytes.Buffer{}, "text", "error"), false)

	for i := 0; i < MaxBufferedLines+10; i++ {
		h.HandleLine(strings.Repeat("x", 3))
	}

	lines := h.RecentLines(MaxBufferedLines)
	if len(lines) != MaxBufferedLines {
		t.Errorf("len(RecentLines) = %d, want %d", len(lines), MaxBufferedLines)
	}
}

func TestStderrHandlerTruncatesLongLines(t *testing.T) {
	h := NewStderrHandler("session-1", NewLoggerWithWriter(&bytes.Buffer{}, "text", "error"), false)

	h.HandleLine(strings.Repeat("a", MaxLineLength+100))

	lines := h.RecentLines(1)
	if len(lines) != 1 {
		t.Fatalf("len(RecentLines) = %d, want 1", len(lines))
	}
	if !strings.HasSuffix(lines[0], "...(truncated)") {
		t.Error("long line was not truncated")
	}
}

func TestStderrHandlerSeverity(t *testing.T) {
	var buf bytes.Buffer
	h := NewStderrHandler("session-1", NewLoggerWithWriter(&buf, "json", "info"), false)

	h.HandleLine("[1234:1234:ERROR:gpu_process_host.cc] GPU process crashed")
	h.HandleLine("chatty informational output")

	out := buf.String()
	if !strings.Contains(out, "browser_stderr") {
		t.Error("warning line was not logged")
	}
	if strings.Contains(out, "chatty informational output") {
		t.Error("debug line logged in non-verbose mode")
	}
}
