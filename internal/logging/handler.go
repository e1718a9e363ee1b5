package logging

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single log line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the maximum number of lines to buffer per session.
	MaxBufferedLines = 100
)

// StderrHandler handles stderr output from browser processes. It buffers
// recent lines so a session's death diagnostics can include the
// browser's final output, and logs lines according to severity.
type StderrHandler struct {
	sessionID string
	logger    *slog.Logger
	verbose   bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewStderrHandler creates a new stderr handler for a session.
func NewStderrHandler(sessionID string, logger *slog.Logger, verbose bool) *StderrHandler {
	return &StderrHandler{
		sessionID: sessionID,
		logger:    logger,
		verbose:   verbose,
		buffer:    make([]string, MaxBufferedLines),
	}
}

// HandleReader reads from an io.Reader and processes each line.
// This should be run in a goroutine.
func (h *StderrHandler) HandleReader(r io.Reader) {
	scanner := bufio.NewScanner(r)
	// Browsers emit long single-line stack traces
	buf := make([]byte, MaxLineLength)
	scanner.Buffer(buf, MaxLineLength)

	for scanner.Scan() {
		h.HandleLine(scanner.Text())
	}
}

// HandleLine processes a single line of stderr output.
func (h *StderrHandler) HandleLine(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	h.logLine(line)
}

// logLine logs the line at appropriate level based on content.
func (h *StderrHandler) logLine(line string) {
	level := h.classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(nil, level, "browser_stderr",
		"session_id", h.sessionID,
		"line", line,
	)
}

// classifyLine determines the log level for a line based on content.
func (h *StderrHandler) classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	if strings.Contains(lower, "fatal") ||
		strings.Contains(lower, "segmentation fault") ||
		strings.Contains(lower, "out of memory") ||
		strings.Contains(lower, "crashed") {
		return slog.LevelWarn
	}

	if strings.Contains(lower, ":error:") ||
		strings.Contains(lower, "[error") ||
		strings.Contains(lower, "gpu process") {
		return slog.LevelWarn
	}

	// Chromium is extremely chatty on stderr; everything else is debug
	return slog.LevelDebug
}

// RecentLines returns the most recent lines from the buffer.
func (h *StderrHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}
	return lines
}
