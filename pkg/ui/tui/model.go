package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AccountState is the display state of one target account
type AccountState int

const (
	AccountPending AccountState = iota
	AccountActive
	AccountDone
)

// AccountRow represents a single target account
type AccountRow struct {
	Name      string
	State     AccountState
	Phase     string // controller state while active
	Saved     int
	Bytes     int64
	Frames    int
	Outcome   string
	StartTime time.Time
	Elapsed   time.Duration
}

// Model represents the dashboard model
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	accounts     map[string]*AccountRow
	accountOrder []string
	current      string

	totalSaved       int
	totalSize        int64
	sessionStartTime time.Time
	finished         bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// onQuit is called once when the user quits
	onQuit func()
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a dashboard for targets
func NewModel(targets []string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	m := &Model{
		spinner:          s,
		progress:         p,
		accounts:         make(map[string]*AccountRow),
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
	for _, t := range targets {
		m.addAccount(t)
	}
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) addAccount(name string) *AccountRow {
	if row, ok := m.accounts[name]; ok {
		return row
	}
	row := &AccountRow{Name: name, State: AccountPending}
	m.accounts[name] = row
	m.accountOrder = append(m.accountOrder, name)
	return row
}

// StartAccount marks an account as active
func (m *Model) StartAccount(name string) {
	row := m.addAccount(name)
	row.State = AccountActive
	row.StartTime = time.Now()
	m.current = name
}

// SetPhase records the controller state of an account
func (m *Model) SetPhase(name, phase string) {
	if row, ok := m.accounts[name]; ok {
		row.Phase = phase
	}
}

// RecordArtifact counts a saved artifact
func (m *Model) RecordArtifact(name string, size int64) {
	row := m.addAccount(name)
	row.Saved++
	row.Bytes += size
	m.totalSaved++
	m.totalSize += size
}

// FinishAccount marks an account as done with its outcome
func (m *Model) FinishAccount(name, outcome string, frames int, elapsed time.Duration) {
	row := m.addAccount(name)
	row.State = AccountDone
	row.Outcome = outcome
	row.Frames = frames
	row.Elapsed = elapsed
	if m.current == name {
		m.current = ""
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Rows returns the accounts in target order
func (m *Model) Rows() []*AccountRow {
	out := make([]*AccountRow, 0, len(m.accountOrder))
	for _, name := range m.accountOrder {
		out = append(out, m.accounts[name])
	}
	return out
}

// Completion returns the share of accounts done, in [0, 1]
func (m *Model) Completion() float64 {
	if len(m.accountOrder) == 0 {
		return 0
	}
	done := 0
	for _, row := range m.accounts {
		if row.State == AccountDone {
			done++
		}
	}
	return float64(done) / float64(len(m.accountOrder))
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
