// Package metadata keeps a per-account manifest of saved story artifacts.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"igstories/pkg/extractor"
	"igstories/pkg/logger"
	"igstories/pkg/storage"
	"igstories/pkg/stories"
)

const manifestSuffix = ".manifest.json"

// Entry describes one saved artifact
type Entry struct {
	Filename  string `json:"filename"`
	SourceURL string `json:"source_url"`

	// Source is the signal the URL came from: network, dom_video or dom_image
	Source string `json:"source"`
	Kind   string `json:"kind"` // "image" or "video"
	Size   int    `json:"size"`

	SavedAt time.Time `json:"saved_at"`
}

// Manifest lists everything saved for an account
type Manifest struct {
	Account   string    `json:"account"`
	UpdatedAt time.Time `json:"updated_at"`
	Entries   []Entry   `json:"entries"`
}

// FromArtifact converts a stored artifact into a manifest entry
func FromArtifact(art storage.Artifact, source extractor.SourceKind) Entry {
	kind := "image"
	if art.Ext == "mp4" {
		kind = "video"
	}
	return Entry{
		Filename:  art.Filename,
		SourceURL: art.URL,
		Source:    source.String(),
		Kind:      kind,
		Size:      art.Size,
		SavedAt:   art.SavedAt,
	}
}

// ManifestPath returns where the manifest of account lives inside dir
func ManifestPath(dir, account string) string {
	return filepath.Join(dir, strings.ToLower(account)+manifestSuffix)
}

// Load reads the manifest of account. A missing file yields an empty
// manifest.
func Load(dir, account string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dir, account))
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Account: account}, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Add appends e unless an entry with the same filename is present
func (m *Manifest) Add(e Entry) bool {
	for _, existing := range m.Entries {
		if existing.Filename == e.Filename {
			return false
		}
	}
	m.Entries = append(m.Entries, e)
	return true
}

// Save writes the manifest to dir, entries sorted by save time
func (m *Manifest) Save(dir string) error {
	sort.SliceStable(m.Entries, func(i, j int) bool {
		return m.Entries[i].SavedAt.Before(m.Entries[j].SavedAt)
	})
	m.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := ManifestPath(dir, m.Account)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	return nil
}

// TotalBytes sums the sizes of all entries
func (m *Manifest) TotalBytes() int64 {
	var n int64
	for _, e := range m.Entries {
		n += int64(e.Size)
	}
	return n
}

// ManifestExists checks if a manifest exists for account
func ManifestExists(dir, account string) bool {
	_, err := os.Stat(ManifestPath(dir, account))
	return err == nil
}

// CleanOrphanedEntries drops manifest entries whose file was removed from
// dir and returns how many were dropped
func CleanOrphanedEntries(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+manifestSuffix))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		account := strings.TrimSuffix(filepath.Base(path), manifestSuffix)
		m, err := Load(dir, account)
		if err != nil {
			return removed, err
		}

		kept := m.Entries[:0]
		for _, e := range m.Entries {
			if _, err := os.Stat(filepath.Join(dir, e.Filename)); os.IsNotExist(err) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == len(m.Entries) {
			continue
		}
		m.Entries = kept
		if err := m.Save(dir); err != nil {
			return removed, fmt.Errorf("failed to rewrite manifest %s: %w", path, err)
		}
	}
	return removed, nil
}

// Writer appends every saved artifact to its account manifest
type Writer struct {
	stories.NopObserver

	dir string
	log logger.Logger
	mu  sync.Mutex
}

// NewWriter creates a manifest writer for the download directory
func NewWriter(dir string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{dir: dir, log: log}
}

// ArtifactSaved implements stories.Observer
func (w *Writer) ArtifactSaved(account string, art storage.Artifact, source extractor.SourceKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := Load(w.dir, account)
	if err != nil {
		w.log.WithError(err).WarnWithFields("Manifest unreadable, starting over", map[string]interface{}{"account": account})
		m = &Manifest{Account: account}
	}
	if !m.Add(FromArtifact(art, source)) {
		return
	}
	if err := m.Save(w.dir); err != nil {
		w.log.WithError(err).WarnWithFields("Manifest not written", map[string]interface{}{"account": account})
	}
}
