// Package credentials stores the sync engine's API key and encryption
// salt, preferring the OS keychain and transparently downgrading to a
// 0600 file under the config directory when no keychain is available.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/lorehq/lore/internal/config"
)

// service scopes every keychain entry lore writes, so it never collides
// with another application's secrets under the same OS account.
const service = "lore"

// Keys under which credentials are stored, in both backends.
const (
	KeyAPIKey = "api_key"
	KeySalt   = "encryption_salt"
)

// Store is the {store, load, delete} contract both backends satisfy. The
// capability probe at startup picks one implementation; callers never
// branch on backend again.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Delete(key string) error
}

// ErrNotFound is returned by Get when no value is stored for key.
var ErrNotFound = errors.New("credentials: not found")

// Open probes the OS keychain with a no-op read and returns a keychain-
// backed Store if it's usable, otherwise a file-backed Store at path.
func Open(path string) Store {
	if keychainAvailable() {
		return keychainStore{}
	}
	return fileStore{path: path}
}

// KeychainAvailable reports which backend Open would pick, for diagnostics
// (`lore doctor`) that want to tell the operator which one is in use.
func KeychainAvailable() bool {
	return keychainAvailable()
}

// keychainAvailable performs a harmless read to detect whether a working
// keychain backend is present (e.g. absent on a headless Linux box with
// no secret service running), without ever surfacing that probe error to
// the caller.
func keychainAvailable() bool {
	_, err := keyring.Get(service, "__lore_probe__")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	return false
}

type keychainStore struct{}

func (keychainStore) Set(key, value string) error {
	if err := keyring.Set(service, key, value); err != nil {
		return fmt.Errorf("credentials: keychain set %s: %w", key, err)
	}
	return nil
}

func (keychainStore) Get(key string) (string, bool, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("credentials: keychain get %s: %w", key, err)
	}
	return v, true, nil
}

func (keychainStore) Delete(key string) error {
	err := keyring.Delete(service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("credentials: keychain delete %s: %w", key, err)
	}
	return nil
}

// fileStore persists every key/value pair in one 0600 JSON file.
type fileStore struct {
	path string
}

func (f fileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("credentials: read %s: %w", f.path, err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", f.path, err)
	}
	return m, nil
}

func (f fileStore) save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("credentials: marshal: %w", err)
	}
	if err := config.AtomicWrite(f.path, data, 0o600); err != nil {
		return fmt.Errorf("credentials: write %s: %w", f.path, err)
	}
	return nil
}

func (f fileStore) Set(key, value string) error {
	m, err := f.load()
	if err != nil {
		return err
	}
	m[key] = value
	return f.save(m)
}

func (f fileStore) Get(key string) (string, bool, error) {
	m, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (f fileStore) Delete(key string) error {
	m, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return f.save(m)
}
