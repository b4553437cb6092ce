package diag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/browser"
	"igstories/pkg/logger"
)

func TestFileSinkWritesUnderCategory(t *testing.T) {
	dir := t.TempDir()
	tl := logger.NewTestLogger()
	sink := NewFileSink(dir, tl)

	path, err := sink.SaveScreenshot([]byte{0x89, 'P', 'N', 'G'}, CategoryErrors, "login timeout")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CategoryErrors), filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "login_timeout_"))
	assert.Contains(t, filepath.Base(path), sink.RunID())
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 4)

	path, err = sink.SaveMarkupDump("<html></html>", CategoryLoginProofs, "dump")
	require.NoError(t, err)
	assert.Equal(t, ".html", filepath.Ext(path))
	assert.True(t, tl.HasMessage("Diagnostic saved"))
}

func TestFileSinkRejectsEmptyScreenshot(t *testing.T) {
	sink := NewFileSink(t.TempDir(), nil)
	_, err := sink.SaveScreenshot(nil, CategoryErrors, "x")
	assert.Error(t, err)
}

func TestFileSinkLogging(t *testing.T) {
	tl := logger.NewTestLogger()
	sink := NewFileSink(t.TempDir(), tl)

	sink.LogInfo("hello", map[string]interface{}{"k": "v"})
	sink.LogError("broken", errors.New("boom"), nil)

	assert.True(t, tl.HasMessage("hello"))
	assert.True(t, tl.HasError())
}

func TestCaptureFailurePrefersScreenshot(t *testing.T) {
	fake := browser.NewFake("https://www.instagram.com/")
	fake.PNG = []byte("png-bytes")
	fake.HTML = "<html/>"
	rec := &Recorder{}

	path := CaptureFailure(context.Background(), rec, fake, "session_timeout", errors.New("timeout"))
	assert.NotEmpty(t, path)

	art := rec.Captured()
	require.Len(t, art, 1)
	assert.Equal(t, "screenshot", art[0].Kind)
	assert.Equal(t, CategoryErrors, art[0].Category)
	assert.Len(t, rec.Errors, 1)
}

func TestCaptureFailureFallsBackToMarkup(t *testing.T) {
	fake := browser.NewFake("https://www.instagram.com/")
	fake.ScreenshotErr = errors.New("target crashed")
	fake.HTML = "<html><body>frozen</body></html>"
	rec := &Recorder{}

	path := CaptureFailure(context.Background(), rec, fake, "element_missing", errors.New("no field"))
	assert.NotEmpty(t, path)

	a, ok := rec.Find("element_missing")
	require.True(t, ok)
	assert.Equal(t, "markup", a.Kind)
}

func TestCaptureFailureFallsBackWhenSinkRejectsScreenshot(t *testing.T) {
	fake := browser.NewFake("")
	fake.PNG = []byte("png")
	fake.HTML = "<html/>"
	rec := &Recorder{FailScreenshots: true}

	CaptureFailure(context.Background(), rec, fake, "x", nil)
	a, ok := rec.Find("x")
	require.True(t, ok)
	assert.Equal(t, "markup", a.Kind)
}

func TestCaptureFailureBothUnavailable(t *testing.T) {
	fake := browser.NewFake("")
	fake.ScreenshotErr = errors.New("a")
	fake.MarkupErr = errors.New("b")
	rec := &Recorder{}

	assert.Empty(t, CaptureFailure(context.Background(), rec, fake, "x", nil))
	assert.Empty(t, rec.Captured())
	assert.Len(t, rec.Errors, 2)
}
