package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

const serviceName = "roaring"

// lockTimeout bounds how long a file-backend write waits for the lock file.
const lockTimeout = 2 * time.Second

// ErrNotFound is returned when no client credentials are stored for an origin.
var ErrNotFound = errors.New("credentials not found")

// ClientCredentials holds the OAuth client ID and secret stored for an origin.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Store handles credential storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store.
func NewStore(fallbackDir string) *Store {
	if os.Getenv("ROARING_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	// Probe the keyring with a throwaway entry.
	testKey := "roaring::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err == nil {
		_ = keyring.Delete(serviceName, testKey)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "credentials.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// key returns the keyring key for an origin.
func key(origin string) string {
	return "roaring::" + origin
}

// Load retrieves credentials for the given origin.
func (s *Store) Load(origin string) (*ClientCredentials, error) {
	if s.useKeyring {
		return s.loadFromKeyring(origin)
	}
	return s.loadFromFile(origin)
}

// Save stores credentials for the given origin.
func (s *Store) Save(origin string, creds *ClientCredentials) error {
	if s.useKeyring {
		return s.saveToKeyring(origin, creds)
	}
	return s.withLock(func() error {
		all, err := s.loadAllFromFile()
		if err != nil {
			return err
		}
		all[origin] = creds
		return s.saveAllToFile(all)
	})
}

// Delete removes credentials for the given origin. Deleting an origin with
// nothing stored is not an error.
func (s *Store) Delete(origin string) error {
	if s.useKeyring {
		err := keyring.Delete(serviceName, key(origin))
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.withLock(func() error {
		all, err := s.loadAllFromFile()
		if err != nil {
			return err
		}
		if _, ok := all[origin]; !ok {
			return nil
		}
		delete(all, origin)
		return s.saveAllToFile(all)
	})
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// Backend names the active storage backend for status output.
func (s *Store) Backend() string {
	if s.useKeyring {
		return "keyring"
	}
	return "file"
}

// Keyring methods

func (s *Store) loadFromKeyring(origin string) (*ClientCredentials, error) {
	data, err := keyring.Get(serviceName, key(origin))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	var creds ClientCredentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

func (s *Store) saveToKeyring(origin string, creds *ClientCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(origin), string(data))
}

// File fallback methods

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.fallbackDir, ".credentials.lock")
}

// withLock runs fn while holding the credentials lock file, so two processes
// cannot interleave a read-modify-write of credentials.json.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	fl := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.lockPath(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: timed out", s.lockPath())
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

func (s *Store) loadAllFromFile() (map[string]*ClientCredentials, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*ClientCredentials), nil
		}
		return nil, err
	}

	var all map[string]*ClientCredentials
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	if all == nil {
		all = make(map[string]*ClientCredentials)
	}
	return all, nil
}

func (s *Store) saveAllToFile(all map[string]*ClientCredentials) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		// Windows refuses to rename over an existing file.
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) loadFromFile(origin string) (*ClientCredentials, error) {
	all, err := s.loadAllFromFile()
	if err != nil {
		return nil, err
	}

	creds, ok := all[origin]
	if !ok || creds == nil {
		return nil, ErrNotFound
	}
	return creds, nil
}
