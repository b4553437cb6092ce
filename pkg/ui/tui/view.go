package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderAccountsPanel(width),
	)
	right := m.renderLogsPanel(width)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " running"
	if m.finished {
		status = successStyle.Render("✓ done")
	}
	return logoStyle.Width(m.width).Render("IGSTORIES  " + status)
}

// renderStatsPanel renders the run totals and overall progress
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN ")

	m.progress.Width = width - 8
	if m.progress.Width < 10 {
		m.progress.Width = 10
	}

	current := "-"
	if m.current != "" {
		current = "@" + m.current
		if row := m.accounts[m.current]; row != nil && row.Phase != "" {
			current += " (" + row.Phase + ")"
		}
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Current:"), statsValueStyle.Render(current)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Saved:"), statsValueStyle.Render(fmt.Sprintf("%d files", m.totalSaved))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Size:"), statsValueStyle.Render(FormatBytes(m.totalSize))),
		m.progress.ViewAs(m.Completion()),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderAccountsPanel lists every target with its status
func (m *Model) renderAccountsPanel(width int) string {
	title := titleStyle.Render(" ACCOUNTS ")

	var items []string
	for _, row := range m.Rows() {
		items = append(items, renderRow(row))
	}
	if len(items) == 0 {
		items = append(items, lipgloss.NewStyle().Foreground(dimWhite).Render("No targets"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

func renderRow(row *AccountRow) string {
	switch row.State {
	case AccountActive:
		return rowActiveStyle.Render(fmt.Sprintf("▶ @%s  %s  %d saved", row.Name, row.Phase, row.Saved))
	case AccountDone:
		style := GetOutcomeStyle(row.Outcome)
		return rowDoneStyle.Render(fmt.Sprintf("✓ @%s  ", row.Name)) +
			style.Render(row.Outcome) +
			rowDoneStyle.Render(fmt.Sprintf("  %d/%d frames  %s", row.Saved, row.Frames, formatDuration(row.Elapsed)))
	default:
		return rowStyle.Render("• @" + row.Name)
	}
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 12
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	if maxMsgLen < 10 {
		maxMsgLen = 10
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		text := log.Message
		if len(text) > maxMsgLen {
			text = text[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 8
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the run and quit
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Outcomes:
    ` + successStyle.Render("exited_to_feed") + `     - All frames viewed
    ` + warningStyle.Render("drifted_account") + `    - Viewer moved to another account
    ` + errorStyle.Render("too_many_failures") + `  - Failure ceiling reached
    no_content         - No story ring on the profile
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
