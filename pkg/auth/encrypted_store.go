package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	envPassphrase  = "IGSTORIES_PASSPHRASE"
	envelopeFormat = 2
)

// EncryptedFileStore keeps every profile in one AES-GCM sealed file
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// envelope is the on-disk layout; only Sealed carries profile data
type envelope struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

type profileSet map[string]Profile

// NewEncryptedFileStore creates a store at filePath, creating its directory
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	passphrase, err := resolvePassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}

	return &EncryptedFileStore{path: filePath, passphrase: passphrase}, nil
}

// NewEncryptedFileStoreWithPassphrase skips passphrase discovery
func NewEncryptedFileStoreWithPassphrase(filePath, passphrase string) *EncryptedFileStore {
	return &EncryptedFileStore{path: filePath, passphrase: passphrase}
}

func (e *EncryptedFileStore) Store(profile *Profile) error {
	if profile == nil || profile.Username == "" {
		return ErrInvalidProfile
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	set, salt, err := e.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load existing profiles: %w", err)
	}
	if set == nil {
		set = profileSet{}
	}
	set[profile.Username] = *profile

	return e.save(set, salt)
}

func (e *EncryptedFileStore) Retrieve(username string) (*Profile, error) {
	if username == "" {
		return nil, ErrInvalidProfile
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	set, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	profile, ok := set[username]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &profile, nil
}

func (e *EncryptedFileStore) List() ([]*Profile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	set, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Profile{}, nil
		}
		return nil, err
	}

	profiles := make([]*Profile, 0, len(set))
	for _, p := range set {
		p := p
		profiles = append(profiles, &p)
	}
	return profiles, nil
}

func (e *EncryptedFileStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidProfile
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	set, salt, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrProfileNotFound
		}
		return err
	}
	if _, ok := set[username]; !ok {
		return ErrProfileNotFound
	}

	delete(set, username)
	if len(set) == 0 {
		return os.Remove(e.path)
	}
	return e.save(set, salt)
}

func (e *EncryptedFileStore) Exists(username string) bool {
	p, err := e.Retrieve(username)
	return err == nil && p != nil
}

func (e *EncryptedFileStore) load() (profileSet, []byte, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, err
	}

	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to parse profile file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode profile data: %w", err)
	}

	plain, err := decrypt(sealed, deriveKey(e.passphrase, salt))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt profiles: %w", err)
	}

	var set profileSet
	if err := json.Unmarshal(plain, &set); err != nil {
		return nil, nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	return set, salt, nil
}

func (e *EncryptedFileStore) save(set profileSet, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	sealed, err := encrypt(plain, deriveKey(e.passphrase, salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt profiles: %w", err)
	}

	content, err := json.MarshalIndent(envelope{
		Version:  envelopeFormat,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

// resolvePassphrase reads IGSTORIES_PASSPHRASE, then a passphrase file in the
// config directory, generating one on first use.
func resolvePassphrase() (string, error) {
	if pass := os.Getenv(envPassphrase); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
