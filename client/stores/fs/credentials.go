// Package fs keeps habitbuddy client sessions in a JSON file so command
// line tools stay logged in between runs.
package fs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/panyam/habitbuddy/client"
)

// DefaultAppName names the config directory used when no path is given
const DefaultAppName = "habitbuddy"

// CredentialStore stores sessions as a JSON file on the filesystem
type CredentialStore struct {
	mu       sync.RWMutex
	path     string
	servers  map[string]*client.ServerCredential
	modified bool
}

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	Servers map[string]*client.ServerCredential `json:"servers"`
}

// DefaultPath returns ~/.config/habitbuddy/credentials.json (or the
// platform equivalent)
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, DefaultAppName, "credentials.json"), nil
}

// NewCredentialStore opens the credential file at path, or DefaultPath if
// path is empty. A missing file is an empty store.
func NewCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	store := &CredentialStore{
		path:    path,
		servers: make(map[string]*client.ServerCredential),
	}
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return store, nil
}

func (s *CredentialStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if file.Servers != nil {
		s.servers = file.Servers
	}
	return nil
}

// normalizeURL reduces a server URL to scheme://host
func normalizeURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

func (s *CredentialStore) GetCredential(serverURL string) (*client.ServerCredential, error) {
	key, err := normalizeURL(serverURL)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[key], nil
}

func (s *CredentialStore) SetCredential(serverURL string, cred *client.ServerCredential) error {
	key, err := normalizeURL(serverURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[key] = cred
	s.modified = true
	return nil
}

func (s *CredentialStore) RemoveCredential(serverURL string) error {
	key, err := normalizeURL(serverURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[key]; ok {
		delete(s.servers, key)
		s.modified = true
	}
	return nil
}

// Servers returns the server URLs with stored sessions, sorted
func (s *CredentialStore) Servers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	servers := make([]string, 0, len(s.servers))
	for k := range s.servers {
		servers = append(servers, k)
	}
	sort.Strings(servers)
	return servers
}

// Save writes the file if anything changed. The file is only readable by
// its owner since it holds bearer tokens.
func (s *CredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(credentialFile{Servers: s.servers}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	s.modified = false
	return nil
}

// Path returns the path to the credentials file
func (s *CredentialStore) Path() string {
	return s.path
}
