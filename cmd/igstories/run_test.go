package main

import (
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/auth"
	"igstories/pkg/config"
	"igstories/pkg/logger"
	"igstories/pkg/session"
	"igstories/pkg/ui/tui"
)

func noPrompt(string) (string, error) {
	return "", errors.New("prompt should not be called")
}

func TestSelectSessionRejectsBothModes(t *testing.T) {
	profiles, _ := auth.NewMockManager()

	_, err := selectSession("me", "me", profiles, noPrompt)
	assert.Error(t, err)
}

func TestSelectSessionRequiresOneMode(t *testing.T) {
	profiles, _ := auth.NewMockManager()

	_, err := selectSession("  ", "", profiles, noPrompt)
	assert.Error(t, err)
}

func TestSelectSessionRestoresSavedToken(t *testing.T) {
	profiles, _ := auth.NewMockManager()
	require.NoError(t, profiles.SaveProfile("me", "abc123"))

	sess, err := selectSession("", "me", profiles, noPrompt)
	require.NoError(t, err)
	assert.True(t, sess.Restoring())
	assert.Equal(t, session.WithToken("me", "abc123"), sess)
}

func TestSelectSessionUnknownProfile(t *testing.T) {
	profiles, _ := auth.NewMockManager()

	_, err := selectSession("", "ghost", profiles, noPrompt)
	assert.ErrorContains(t, err, "no saved session for ghost")
}

func TestSelectSessionPasswordFromEnvironment(t *testing.T) {
	t.Setenv("IGSTORIES_PASSWORD", "hunter2")
	profiles, _ := auth.NewMockManager()

	sess, err := selectSession("me", "", profiles, noPrompt)
	require.NoError(t, err)
	assert.Equal(t, session.WithCredentials("me", "hunter2"), sess)
	assert.NoError(t, sess.Validate())
}

func TestSelectSessionPromptsForPassword(t *testing.T) {
	t.Setenv("IGSTORIES_PASSWORD", "")
	profiles, _ := auth.NewMockManager()

	var asked string
	sess, err := selectSession("me", "", profiles, func(label string) (string, error) {
		asked = label
		return "secret", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Password for me: ", asked)
	assert.Equal(t, "secret", sess.Password)
}

func TestSelectSessionEmptyPassword(t *testing.T) {
	t.Setenv("IGSTORIES_PASSWORD", "")
	profiles, _ := auth.NewMockManager()

	_, err := selectSession("me", "", profiles, func(string) (string, error) { return "", nil })
	assert.EqualError(t, err, "password is required")
}

func TestSessionMode(t *testing.T) {
	assert.Equal(t, "restore", sessionMode(session.WithToken("me", "t")))
	assert.Equal(t, "login", sessionMode(session.WithCredentials("me", "p")))
}

func TestDashboardTakesOverLogging(t *testing.T) {
	stderrLog := logger.NewTestLogger()
	logger.SetLogger(stderrLog)
	t.Cleanup(func() { logger.SetLogger(nil) })

	dash := tui.NewTUI([]string{"natgeo"}, nil,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	d, err := startDashboard(dash, &config.LoggingConfig{Level: "info"})
	require.NoError(t, err)

	logger.GetLogger().Info("Browser started")
	assert.False(t, stderrLog.HasMessage("Browser started"), "log lines go to the dashboard")

	d.close(true)
	d.close(true)
	assert.Same(t, stderrLog, logger.GetLogger())

	logger.GetLogger().Info("Run finished")
	assert.True(t, stderrLog.HasMessage("Run finished"))
}
