// Package tui renders a live dashboard of a story run with bubbletea.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"igstories/pkg/extractor"
	"igstories/pkg/storage"
	"igstories/pkg/stories"
)

// TUI represents the terminal user interface. It implements
// stories.Observer so the controller can drive it directly.
type TUI struct {
	program *tea.Program
	model   *Model
	once    sync.Once
}

// NewTUI creates a dashboard for targets. onQuit is called when the user
// presses q and should cancel the run.
func NewTUI(targets []string, onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(targets)
	model.onQuit = onQuit
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until it quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.once.Do(t.program.Quit)
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Finish marks the run as complete
func (t *TUI) Finish() {
	t.Send(RunDoneMsg{})
}

func (t *TUI) AccountStarted(account string, index, total int) {
	t.Send(AccountStartMsg{Account: account, Index: index, Total: total})
}

func (t *TUI) StateChanged(account string, _, to stories.State) {
	t.Send(PhaseMsg{Account: account, Phase: to.String()})
}

func (t *TUI) ArtifactSaved(account string, art storage.Artifact, source extractor.SourceKind) {
	t.Send(ArtifactMsg{Account: account, Filename: art.Filename, Source: source.String(), Size: int64(art.Size)})
}

func (t *TUI) BatchFinished(res stories.BatchResult) {
	t.Send(AccountDoneMsg{
		Account: res.Account,
		Outcome: res.Outcome.String(),
		Saved:   res.Saved,
		Frames:  res.Frames,
		Elapsed: res.Elapsed,
	})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Write accepts zerolog JSON events so the run's logger can draw into the
// log pane instead of over the dashboard.
func (t *TUI) Write(p []byte) (int, error) {
	if msg, ok := logLine(p); ok {
		t.Log(msg.Level, "%s", msg.Message)
	}
	return len(p), nil
}

// logLine turns one zerolog event into a LogMsg. The account and error
// fields are folded into the message.
func logLine(p []byte) (LogMsg, bool) {
	var event struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Account string `json:"account"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(p, &event); err != nil || event.Message == "" {
		return LogMsg{}, false
	}

	msg := event.Message
	if event.Account != "" {
		msg = event.Account + ": " + msg
	}
	if event.Error != "" {
		msg += " (" + event.Error + ")"
	}
	return LogMsg{Level: strings.ToUpper(event.Level), Message: msg}, true
}
