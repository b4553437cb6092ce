package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the dashboard

// AccountStartMsg is sent when the controller starts an account
type AccountStartMsg struct {
	Account string
	Index   int
	Total   int
}

// PhaseMsg is sent on every controller state change
type PhaseMsg struct {
	Account string
	Phase   string
}

// ArtifactMsg is sent when a frame is saved
type ArtifactMsg struct {
	Account  string
	Filename string
	Source   string
	Size     int64
}

// AccountDoneMsg is sent when an account batch ends
type AccountDoneMsg struct {
	Account string
	Outcome string
	Saved   int
	Frames  int
	Elapsed time.Duration
}

// RunDoneMsg is sent after the last account
type RunDoneMsg struct{}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case AccountStartMsg:
		m.StartAccount(msg.Account)
		m.AddLogMessage("INFO", "Checking @"+msg.Account)
		return m, nil

	case PhaseMsg:
		m.SetPhase(msg.Account, msg.Phase)
		return m, nil

	case ArtifactMsg:
		m.RecordArtifact(msg.Account, msg.Size)
		m.AddLogMessage("SUCCESS", "Saved "+msg.Filename+" ("+msg.Source+")")
		return m, nil

	case AccountDoneMsg:
		m.FinishAccount(msg.Account, msg.Outcome, msg.Frames, msg.Elapsed)
		level := "INFO"
		if msg.Outcome == "too_many_failures" {
			level = "WARN"
		}
		m.AddLogMessage(level, "@"+msg.Account+" finished: "+msg.Outcome)
		return m, nil

	case RunDoneMsg:
		m.finished = true
		m.AddLogMessage("SUCCESS", "Run complete, press q to exit")
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
			m.onQuit = nil
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
