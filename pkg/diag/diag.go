// Package diag stores failure evidence: screenshots, markup dumps and log
// lines tagged with the run that produced them.
package diag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"igstories/pkg/browser"
	"igstories/pkg/logger"
)

// Well known artifact categories. Each maps to a subdirectory.
const (
	CategoryErrors      = "errors"
	CategoryLoginProofs = "login_proofs"
)

// Sink receives diagnostics. Save methods return the path written.
type Sink interface {
	LogInfo(msg string, fields map[string]interface{})
	LogError(msg string, err error, fields map[string]interface{})
	SaveScreenshot(png []byte, category, name string) (string, error)
	SaveMarkupDump(markup, category, name string) (string, error)
}

// FileSink writes artifacts under Root/{category}/ and logs through a Logger.
type FileSink struct {
	root  string
	runID string
	log   logger.Logger
	now   func() time.Time

	mu sync.Mutex
}

// NewFileSink creates a sink rooted at dir. A fresh run id is generated.
func NewFileSink(dir string, log logger.Logger) *FileSink {
	if log == nil {
		log = logger.NewNopLogger()
	}
	runID := uuid.NewString()[:8]
	return &FileSink{
		root:  dir,
		runID: runID,
		log:   log.WithField("run_id", runID),
		now:   time.Now,
	}
}

// RunID identifies the current process run in artifact names.
func (s *FileSink) RunID() string { return s.runID }

func (s *FileSink) LogInfo(msg string, fields map[string]interface{}) {
	s.log.InfoWithFields(msg, fields)
}

func (s *FileSink) LogError(msg string, err error, fields map[string]interface{}) {
	l := s.log
	if err != nil {
		l = l.WithError(err)
	}
	l.ErrorWithFields(msg, fields)
}

func (s *FileSink) SaveScreenshot(png []byte, category, name string) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("empty screenshot for %s/%s", category, name)
	}
	return s.write(category, name, ".png", png)
}

func (s *FileSink) SaveMarkupDump(markup, category, name string) (string, error) {
	return s.write(category, name, ".html", []byte(markup))
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *FileSink) write(category, name, ext string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, unsafeName.ReplaceAllString(category, "_"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create diagnostic directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s%s",
		unsafeName.ReplaceAllString(name, "_"),
		s.now().Format("20060102_150405"),
		s.runID,
		ext)
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write diagnostic %s: %w", filename, err)
	}
	s.log.WithFields(map[string]interface{}{
		"category": category,
		"path":     path,
		"bytes":    len(data),
	}).Debug("Diagnostic saved")
	return path, nil
}

// CaptureFailure records the page state for a failure. It tries a
// screenshot first and falls back to a markup dump; the error is logged in
// either case. It returns the artifact path, empty when both captures fail.
func CaptureFailure(ctx context.Context, sink Sink, s browser.Surface, name string, cause error) string {
	fields := map[string]interface{}{"artifact": name}
	sink.LogError("Failure captured", cause, fields)

	if png, err := s.Screenshot(ctx); err == nil && len(png) > 0 {
		if path, err := sink.SaveScreenshot(png, CategoryErrors, name); err == nil {
			return path
		}
	}

	markup, err := s.Markup(ctx)
	if err != nil {
		sink.LogError("Markup dump unavailable", err, fields)
		return ""
	}
	path, err := sink.SaveMarkupDump(markup, CategoryErrors, name)
	if err != nil {
		sink.LogError("Markup dump not written", err, fields)
		return ""
	}
	return path
}

// Nop discards everything
type Nop struct{}

func (Nop) LogInfo(string, map[string]interface{})         {}
func (Nop) LogError(string, error, map[string]interface{}) {}
func (Nop) SaveScreenshot([]byte, string, string) (string, error) {
	return "", nil
}
func (Nop) SaveMarkupDump(string, string, string) (string, error) {
	return "", nil
}
