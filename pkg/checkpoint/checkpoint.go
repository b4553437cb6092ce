package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"igstories/pkg/logger"
	"igstories/pkg/stories"
)

const checkpointVersion = 2

// runNamespace scopes run keys derived from target lists
var runNamespace = uuid.MustParse("6f1b2a4e-6c0d-4f5e-9a61-3c2d7e8b9f10")

// AccountRecord is the stored result of one finished account
type AccountRecord struct {
	Outcome    string    `json:"outcome"`
	Saved      int       `json:"saved"`
	Frames     int       `json:"frames"`
	FinishedAt time.Time `json:"finished_at"`
}

// Checkpoint represents the state of a run over a target list
type Checkpoint struct {
	RunKey     string                   `json:"run_key"`
	Targets    []string                 `json:"targets"`
	Completed  map[string]AccountRecord `json:"completed"` // account -> result
	TotalSaved int                      `json:"total_saved"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
	Version    int                      `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// RunKey derives a stable key for a target list. Order and case do not
// matter, so rerunning the same accounts finds the same checkpoint.
func RunKey(targets []string) string {
	norm := make([]string, 0, len(targets))
	for _, t := range targets {
		norm = append(norm, strings.ToLower(strings.TrimSpace(t)))
	}
	sort.Strings(norm)
	return uuid.NewSHA1(runNamespace, []byte(strings.Join(norm, ","))).String()
}

// NewManager creates a checkpoint manager for the run over targets in the
// platform data directory
func NewManager(targets []string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerInDir(filepath.Join(dataDir, "checkpoints"), targets)
}

// NewManagerInDir creates a checkpoint manager storing files under dir
func NewManagerInDir(dir string, targets []string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", RunKey(targets)))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create creates a new checkpoint
func (m *Manager) Create(targets []string) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		RunKey:    RunKey(targets),
		Targets:   append([]string(nil), targets...),
		Completed: make(map[string]AccountRecord),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   checkpointVersion,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"targets": len(targets),
		"path":    m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint. It returns nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", checkpoint.Version)
	}
	if checkpoint.Completed == nil {
		checkpoint.Completed = make(map[string]AccountRecord)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"completed":   len(checkpoint.Completed),
		"total_saved": checkpoint.TotalSaved,
		"updated_at":  checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// LoadOrCreate resumes the stored checkpoint or starts a new one
func (m *Manager) LoadOrCreate(targets []string) (*Checkpoint, error) {
	cp, err := m.Load()
	if err != nil {
		return nil, err
	}
	if cp != nil {
		return cp, nil
	}
	return m.Create(targets)
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"completed":   len(checkpoint.Completed),
		"total_saved": checkpoint.TotalSaved,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordBatch stores the result of a finished account
func (m *Manager) RecordBatch(checkpoint *Checkpoint, res stories.BatchResult) error {
	checkpoint.Completed[strings.ToLower(res.Account)] = AccountRecord{
		Outcome:    res.Outcome.String(),
		Saved:      res.Saved,
		Frames:     res.Frames,
		FinishedAt: time.Now(),
	}
	checkpoint.TotalSaved += res.Saved
	return m.Save(checkpoint)
}

// IsCompleted checks if an account already finished in this run
func (checkpoint *Checkpoint) IsCompleted(account string) bool {
	_, exists := checkpoint.Completed[strings.ToLower(account)]
	return exists
}

// Remaining filters targets down to accounts not yet completed, keeping order
func (checkpoint *Checkpoint) Remaining(targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if !checkpoint.IsCompleted(t) {
			out = append(out, t)
		}
	}
	return out
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"run_key":     checkpoint.RunKey,
		"targets":     len(checkpoint.Targets),
		"completed":   len(checkpoint.Completed),
		"total_saved": checkpoint.TotalSaved,
		"created_at":  checkpoint.CreatedAt,
		"updated_at":  checkpoint.UpdatedAt,
		"age":         time.Since(checkpoint.UpdatedAt),
	}, nil
}

// BackupCheckpoint creates a backup of the current checkpoint
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil
	}

	backupPath := m.checkpointPath + ".backup"

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// Tracker records finished accounts as the controller reports them. Save
// failures are logged and do not stop the run.
type Tracker struct {
	stories.NopObserver

	mu         sync.Mutex
	manager    *Manager
	checkpoint *Checkpoint
}

// NewTracker binds a manager and its loaded checkpoint
func NewTracker(m *Manager, cp *Checkpoint) *Tracker {
	return &Tracker{manager: m, checkpoint: cp}
}

// BatchFinished implements stories.Observer
func (t *Tracker) BatchFinished(res stories.BatchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.manager.RecordBatch(t.checkpoint, res); err != nil {
		t.manager.logger.WithError(err).Warn("Checkpoint not updated")
	}
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igstories")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igstories")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igstories")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igstories")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
