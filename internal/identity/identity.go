// Package identity owns the local machine's stable UUID and human-readable
// name: generated once on first use, then persisted and reused forever.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/paths"
)

// appID scopes the machine fingerprint so it doesn't collide with other
// tools that also call machineid.ProtectedID on the same host.
const appID = "lore"

type record struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Load reads the machine identity from disk, creating and persisting one
// with a fingerprint-derived default name if none exists yet.
func Load() (model.Machine, error) {
	path, err := paths.IdentityPath()
	if err != nil {
		return model.Machine{}, fmt.Errorf("identity path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit path, for tests.
func LoadFrom(path string) (model.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return createAndSave(path)
		}
		return model.Machine{}, fmt.Errorf("read machine identity: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Machine{}, fmt.Errorf("parse machine identity: %w", err)
	}
	return model.Machine{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}, nil
}

// Rename updates the machine's human-readable name and persists it.
func Rename(path, name string) (model.Machine, error) {
	m, err := LoadFrom(path)
	if err != nil {
		return model.Machine{}, err
	}
	m.Name = name
	if err := save(path, m); err != nil {
		return model.Machine{}, err
	}
	return m, nil
}

func createAndSave(path string) (model.Machine, error) {
	m := model.Machine{
		ID:        uuid.New(),
		Name:      defaultName(),
		CreatedAt: time.Now().UTC(),
	}
	if err := save(path, m); err != nil {
		return model.Machine{}, err
	}
	return m, nil
}

func save(path string, m model.Machine) error {
	rec := record{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal machine identity: %w", err)
	}
	if err := config.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("write machine identity: %w", err)
	}
	return nil
}

// defaultName builds a human-friendly default from the hostname, falling
// back to a short slice of the OS-protected machine fingerprint when the
// hostname is unavailable or empty.
func defaultName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}

	id, err := machineid.ProtectedID(appID)
	if err != nil || id == "" {
		return "unknown-machine"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "machine-" + strings.ToLower(id)
}
