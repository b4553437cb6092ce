package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igstories/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "console info", cfg: &config.LoggingConfig{Level: "info", Format: "console"}},
		{name: "json debug", cfg: &config.LoggingConfig{Level: "debug", Format: "json"}},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWithOutputWritesOnlyToOut(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "run.log")
	l, err := NewWithOutput(&config.LoggingConfig{Level: "info", Format: "console", File: file}, &buf)
	require.NoError(t, err)

	l.WithField("account", "natgeo").Info("Story saved")
	l.Debug("hidden")

	line := buf.String()
	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"message":"Story saved"`)
	assert.Contains(t, line, `"account":"natgeo"`)
	assert.NotContains(t, line, "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Story saved")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("account", "natgeo").
		WithFields(map[string]interface{}{"saved": 3, "state": "extracting"}).
		Info("chained fields")

	out := buf.String()
	assert.Contains(t, out, "chained fields")
	assert.Contains(t, out, `"account":"natgeo"`)
	assert.Contains(t, out, `"saved":3`)
	assert.Contains(t, out, `"state":"extracting"`)
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	_ = l.WithField("child", true)
	l.Info("parent only")

	assert.NotContains(t, buf.String(), "child")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("fetch failed")).Error("frame skipped")
	out := buf.String()
	assert.Contains(t, out, "frame skipped")
	assert.Contains(t, out, "fetch failed")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("typed", map[string]interface{}{
		"int64":    int64(456),
		"duration": 1500 * time.Millisecond,
		"when":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"names":    []string{"a", "b"},
		"cause":    errors.New("boom"),
	})

	out := buf.String()
	assert.Contains(t, out, `"int64":456`)
	assert.Contains(t, out, `"names":["a","b"]`)
	assert.Contains(t, out, `"cause":"boom"`)
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogTransition(tl, "natgeo", "checking", "opening")
	LogArtifact(tl, "natgeo", "natgeo_1700000000.jpg", 42_000, nil)
	LogArtifact(tl, "natgeo", "natgeo_1700000001.mp4", 10, errors.New("too small"))
	LogBatchSummary(tl, "natgeo", "exited_to_feed", 1, time.Minute)

	assert.True(t, tl.HasMessage("Batch state changed"))
	assert.True(t, tl.HasMessage("Artifact saved"))
	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.EqualError(t, warns[0].Error, "too small")
	assert.Equal(t, "natgeo_1700000001.mp4", warns[0].Fields["filename"])
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("account", "a").WithError(errors.New("x"))

	child.Info("from child")
	tl.Error("from parent")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Fields["account"])
	assert.Error(t, msgs[0].Error)
	assert.NoError(t, msgs[1].Error)
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessageContaining("child"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug", Format: "json"}))
	assert.NotNil(t, GetLogger())

	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("via global")
	WithField("k", "v").Warn("with field")
	assert.True(t, tl.HasMessage("via global"))
	assert.True(t, strings.HasPrefix(tl.GetMessagesByLevel("WARN")[0].Message, "with"))
}
