package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Profile is a saved session for one account. The token is the value of the
// site's session cookie.
type Profile struct {
	Username     string    `json:"username" yaml:"username"`
	SessionToken string    `json:"session_token" yaml:"session_token"`
	SavedAt      time.Time `json:"saved_at" yaml:"saved_at"`
}

// ProfileStore is a backend able to persist profiles
type ProfileStore interface {
	Store(profile *Profile) error
	Retrieve(username string) (*Profile, error)
	List() ([]*Profile, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager persists profiles across a chain of stores. Writes go to the first
// store that accepts them; reads return the first hit.
type Manager struct {
	stores []ProfileStore
}

// NewManager creates a manager backed by the system keyring when available,
// an encrypted file in the config directory and the environment.
func NewManager() (*Manager, error) {
	var stores []ProfileStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "profiles.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...ProfileStore) *Manager {
	return &Manager{stores: stores}
}

// SaveProfile records token as the session for account
func (m *Manager) SaveProfile(account, token string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return errors.New("username is required")
	}
	if token == "" {
		return errors.New("session token is required")
	}

	profile := &Profile{Username: account, SessionToken: token, SavedAt: time.Now()}

	var errs []error
	for _, store := range m.stores {
		err := store.Store(profile)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to save profile: %w", errors.Join(errs...))
}

// LoadProfileToken returns the saved session token for account
func (m *Manager) LoadProfileToken(account string) (string, error) {
	for _, store := range m.stores {
		if profile, err := store.Retrieve(account); err == nil && profile != nil && profile.SessionToken != "" {
			return profile.SessionToken, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrProfileNotFound, account)
}

// ListSavedProfiles returns the names of every saved account, sorted
func (m *Manager) ListSavedProfiles() ([]string, error) {
	profiles, err := m.Profiles()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Username)
	}
	return names, nil
}

// Profiles returns every saved profile, newest copy per account, sorted by
// username.
func (m *Manager) Profiles() ([]*Profile, error) {
	byName := make(map[string]*Profile)
	var errs []error

	for _, store := range m.stores {
		profiles, err := store.List()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range profiles {
			if existing, ok := byName[p.Username]; !ok || p.SavedAt.After(existing.SavedAt) {
				byName[p.Username] = p
			}
		}
	}

	if len(byName) == 0 && len(errs) == len(m.stores) && len(errs) > 0 {
		return nil, fmt.Errorf("failed to list profiles: %w", errors.Join(errs...))
	}

	result := make([]*Profile, 0, len(byName))
	for _, p := range byName {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// Delete removes account from every store holding it
func (m *Manager) Delete(account string) error {
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(account); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, account)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igstories")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igstories")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igstories")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igstories")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskToken hides all but the edges of a session token for display
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidProfile   = errors.New("invalid profile")
	ErrStoreUnavailable = errors.New("profile store unavailable")
)
