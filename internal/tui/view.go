package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	parts := []string{
		m.renderHeader(),
		m.theme.Border.Render(m.queue.View()),
		m.renderPreview(),
	}

	if m.adding {
		parts = append(parts, m.theme.Header.Render(" Add preset ")+m.input.View())
	}
	if line := m.renderStatus(); line != "" {
		parts = append(parts, line)
	}

	help := " [a] Add • [d] Delete • [p] Preview • [0] Rewind • [↑/↓] Select • [q] Quit"
	if m.adding {
		help = " [enter] Schedule • [esc] Cancel"
	}
	parts = append(parts, m.theme.Dim.Render(help))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("LVS CONSOLE")
	phase := m.theme.Dim.Render(m.state.Phase.String())
	queued := fmt.Sprintf("%d queued", len(m.rows))
	engine := fmt.Sprintf("engine at %ss", formatSeconds(m.state.EngineTimestampMs))

	line := strings.Join([]string{title, phase, queued, engine, m.activity.Render(m.theme)}, "  ")
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width - 4).Render(line)
	}
	return line
}

func (m Model) renderPreview() string {
	state := m.theme.Stopped.Render("■ stopped")
	if m.state.IsPreviewPlaying {
		state = m.theme.Playing.Render("▶ playing")
	}
	return fmt.Sprintf(" %s  position %ss  last sent %ss",
		state, formatSeconds(m.positionMs), formatSeconds(m.state.LastTimestampMs))
}

func (m Model) renderStatus() string {
	var parts []string
	if m.lastEvent != "" {
		parts = append(parts, m.theme.Dim.Render("last event "+m.lastEvent))
	}
	if m.status != "" {
		parts = append(parts, m.theme.Status.Render(m.status))
	}
	if m.lastError != "" {
		parts = append(parts, m.theme.Failed.Render("⚠ "+m.lastError))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  ")
}
