package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Dashboard Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderOccupancy())

	if m.status != nil {
		sections = append(sections, m.renderLifecycle())
		sections = append(sections, m.renderSlotTable())
	}
	if m.latencies != nil {
		sections = append(sections, m.renderLatencies())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-browser-session-pool │ Sessions: %d/%d │ Elapsed: %s ",
		m.Occupancy(),
		m.Capacity(),
		formatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Occupancy Section
// =============================================================================

func (m Model) renderOccupancy() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	bar := RenderOccupancyBar(m.Occupancy(), m.Capacity(), barWidth)

	var status string
	switch {
	case m.status == nil:
		status = mutedStyle.Render("waiting for first snapshot...")
	case m.Occupancy() >= m.Capacity():
		status = statusWarning.Render(fmt.Sprintf("Pool full: %d/%d", m.Occupancy(), m.Capacity()))
	default:
		status = statusInfo.Render(fmt.Sprintf("%d/%d slots in use", m.Occupancy(), m.Capacity()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Pool Occupancy"),
		bar,
		status,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Lifecycle Counters
// =============================================================================

func (m Model) renderLifecycle() string {
	s := m.status
	line := fmt.Sprintf(
		"created %d   reused %d   rebuilt %d   evicted %d   tasks %d",
		s.SessionsCreated,
		s.SessionsReused,
		s.SessionsRebuilt,
		s.SlotsEvicted,
		s.TasksStarted,
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Session Lifecycle"),
		baseStyle.Render(line),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Slot Table
// =============================================================================

func (m Model) renderSlotTable() string {
	var rows []string
	rows = append(rows, mutedStyle.Render(
		fmt.Sprintf("%-24s %-10s %-6s %6s %10s", "OWNER", "STATE", "BOUND", "TASKS", "IDLE")))

	for _, slot := range m.status.Slots {
		bound := "-"
		if slot.ExecutorBound {
			bound = "yes"
		}
		row := fmt.Sprintf("%-24s %-10s %-6s %6d %10s",
			truncate(slot.OwnerKey, 24),
			stateStyle(slot.State).Render(fmt.Sprintf("%-10s", slot.State)),
			bound,
			slot.TaskCount,
			formatDuration(slot.IdleFor),
		)
		rows = append(rows, baseStyle.Render(row))
	}

	if len(m.status.Slots) == 0 {
		rows = append(rows, mutedStyle.Render("(no sessions)"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Slots")}, rows...)...)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Latency Section
// =============================================================================

func (m Model) renderLatencies() string {
	l := m.latencies
	acquire := fmt.Sprintf("acquire  p50 %-10s p95 %-10s p99 %-10s (n=%d)",
		formatDuration(l.Acquire.P50),
		formatDuration(l.Acquire.P95),
		formatDuration(l.Acquire.P99),
		l.Acquire.Count,
	)
	task := fmt.Sprintf("task     p50 %-10s p95 %-10s p99 %-10s (n=%d)",
		formatDuration(l.Task.P50),
		formatDuration(l.Task.P95),
		formatDuration(l.Task.P99),
		l.Task.Count,
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Latency"),
		baseStyle.Render(acquire),
		baseStyle.Render(task),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	footer := fmt.Sprintf(" q: quit │ r: refresh │ metrics: %s │ updated %s ago ",
		m.metricsAddr,
		formatDuration(time.Since(m.lastUpdate)),
	)
	return mutedStyle.Render(footer)
}

// =============================================================================
// Helpers
// =============================================================================

// formatDuration renders a duration compactly (1h02m, 3m05s, 12s, 340ms).
func formatDuration(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncate shortens a string to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return strings.TrimSpace(s[:max-1]) + "…"
}
