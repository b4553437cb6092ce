package storage

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"igstories/pkg/errors"
)

// Limits are the minimum payload sizes, in bytes, accepted per media kind.
// Smaller payloads are placeholders, thumbnails or error bodies.
type Limits struct {
	ImageMinBytes int
	VideoMinBytes int
}

// DefaultLimits returns the floors used when none are configured
func DefaultLimits() Limits {
	return Limits{ImageMinBytes: 15000, VideoMinBytes: 200000}
}

// Floor returns the minimum size for ext
func (l Limits) Floor(ext string) int {
	if ext == "mp4" {
		return l.VideoMinBytes
	}
	return l.ImageMinBytes
}

// Validate rejects payloads below the floor for ext. The returned error is a
// validation error whose Code is the payload size.
func (l Limits) Validate(ext string, size int) error {
	floor := l.Floor(ext)
	if size < floor {
		return &errors.Error{
			Type:    errors.ErrorTypeValidation,
			Message: fmt.Sprintf("%s payload too small: %d < %d bytes", ext, size, floor),
			Code:    size,
		}
	}
	return nil
}

// Artifact is a media file owned by the output directory
type Artifact struct {
	Account  string
	Filename string
	Path     string
	URL      string
	Ext      string
	Size     int
	SavedAt  time.Time
}

// Filename builds the artifact name for account at epoch seconds
func Filename(account string, epoch int64, ext string) string {
	return fmt.Sprintf("%s_%d.%s", account, epoch, ext)
}

// maxCollisions bounds the suffixes tried for one second
const maxCollisions = 100

// collisionName is the name of the n-th file saved for account within the
// same second
func collisionName(account string, epoch int64, n int, ext string) string {
	if n == 0 {
		return Filename(account, epoch, ext)
	}
	return fmt.Sprintf("%s_%d_%d.%s", account, epoch, n, ext)
}

// Manager validates payloads and writes them into the output directory
type Manager struct {
	outputDir string
	limits    Limits
	now       func() time.Time

	mu    sync.Mutex
	saved int
}

// NewManager creates the output directory if needed
func NewManager(outputDir string, limits Limits) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorage, "failed to create output directory", err)
	}
	return &Manager{outputDir: outputDir, limits: limits, now: time.Now}, nil
}

// SetClock replaces the time source used for filenames
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Save validates data against the floor for ext and writes it as
// {account}_{epoch}.{ext}. Existing files are never overwritten: a second
// story saved within the same second gets {account}_{epoch}_{n}.{ext}.
func (m *Manager) Save(account, url, ext string, data []byte) (*Artifact, error) {
	if err := m.limits.Validate(ext, len(data)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for n := 0; n < maxCollisions; n++ {
		name := collisionName(account, now.Unix(), n, ext)
		path := filepath.Join(m.outputDir, name)

		err := writeAtomic(path, data)
		if stderrors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeStorage, "failed to write "+name, err)
		}

		m.saved++
		return &Artifact{
			Account:  account,
			Filename: name,
			Path:     path,
			URL:      url,
			Ext:      ext,
			Size:     len(data),
			SavedAt:  now,
		}, nil
	}
	return nil, errors.New(errors.ErrorTypeStorage,
		fmt.Sprintf("no free filename for %s at %d", account, now.Unix()))
}

// writeAtomic writes through a temporary file and links it into place.
// It returns fs.ErrExist when path is already taken.
func writeAtomic(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fs.ErrExist
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	defer os.Remove(tempFile)

	if err := os.Link(tempFile, path); err != nil {
		if os.IsExist(err) {
			return fs.ErrExist
		}
		// filesystems without hard links
		if _, statErr := os.Stat(path); statErr == nil {
			return fs.ErrExist
		}
		return os.Rename(tempFile, path)
	}
	return nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// SavedCount returns the number of files written by this manager
func (m *Manager) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

// Limits returns the configured floors
func (m *Manager) Limits() Limits {
	return m.limits
}
