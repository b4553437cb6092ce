package auth

import (
	"os"
	"strings"
	"time"
)

const (
	envSessionToken = "IGSTORIES_SESSION_TOKEN"
	envSessionUser  = "IGSTORIES_SESSION_USER"
)

// EnvironmentStore exposes a read-only profile from environment variables,
// useful for CI and containers without a keychain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment profile when username matches
// IGSTORIES_SESSION_USER, or any username when that variable is unset.
func (e *EnvironmentStore) Retrieve(username string) (*Profile, error) {
	token := os.Getenv(envSessionToken)
	if token == "" {
		return nil, ErrProfileNotFound
	}

	envUser := os.Getenv(envSessionUser)
	if envUser != "" && username != "" && !strings.EqualFold(envUser, username) {
		return nil, ErrProfileNotFound
	}
	if envUser == "" {
		envUser = username
	}
	if envUser == "" {
		envUser = "default"
	}

	return &Profile{
		Username:     envUser,
		SessionToken: token,
		// never newer than a stored copy
		SavedAt: time.Time{},
	}, nil
}

func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve(os.Getenv(envSessionUser))
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
