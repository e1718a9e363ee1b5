package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
	"github.com/randomizedcoder/go-browser-session-pool/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// StatusSource provides the pool snapshot.
type StatusSource interface {
	Status() pool.Status
}

// LatencySource provides acquisition and task latency summaries.
type LatencySource interface {
	Snapshot() stats.Summary
}

// Config holds TUI configuration.
type Config struct {
	MetricsAddr   string
	StatusSource  StatusSource
	LatencySource LatencySource
}

// Model represents the TUI state.
type Model struct {
	metricsAddr string

	status    *pool.Status
	latencies *stats.Summary

	startTime  time.Time
	lastUpdate time.Time

	width  int
	height int

	statusSource  StatusSource
	latencySource LatencySource

	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		metricsAddr:   cfg.MetricsAddr,
		statusSource:  cfg.StatusSource,
		latencySource: cfg.LatencySource,
		startTime:     time.Now(),
		lastUpdate:    time.Now(),
		width:         80,
		height:        24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.statusSource != nil {
			st := m.statusSource.Status()
			m.status = &st
		}
		if m.latencySource != nil {
			ls := m.latencySource.Snapshot()
			m.latencies = &ls
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the daemon started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Occupancy returns the current slot count.
func (m Model) Occupancy() int {
	if m.status == nil {
		return 0
	}
	return m.status.Occupancy
}

// Capacity returns the pool capacity.
func (m Model) Capacity() int {
	if m.status == nil {
		return 0
	}
	return m.status.Capacity
}
