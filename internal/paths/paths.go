// Package paths provides centralized path resolution for lore.
// This package has NO internal imports (only stdlib) to avoid import cycles.
// All functions return errors to allow callers to log appropriately.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// BaseDir returns the lore base directory (~/.lore).
func BaseDir() (string, error) {
	if override := os.Getenv("LORE_HOME"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".lore"), nil
}

// DataPath returns a path within the lore data directory (~/.lore/<subpath>).
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// DefaultConfigPath returns the default location for new configs (~/.lore/config.yaml).
func DefaultConfigPath() (string, error) {
	return DataPath("config.yaml")
}

// DBPath returns the default sqlite database path (~/.lore/lore.db).
func DBPath() (string, error) {
	return DataPath("lore.db")
}

// CredentialsPath returns the file-fallback credentials path (~/.lore/credentials.json).
func CredentialsPath() (string, error) {
	return DataPath("credentials.json")
}

// IdentityPath returns the machine identity file path (~/.lore/machine.json).
func IdentityPath() (string, error) {
	return DataPath("machine.json")
}

// LogsDir returns the directory lore writes log files into (~/.lore/logs).
func LogsDir() (string, error) {
	return DataPath("logs")
}

// DaemonSocketPath returns the unix domain socket path used for daemon RPC.
func DaemonSocketPath() (string, error) {
	return DataPath("daemon.sock")
}

// DaemonPIDPath returns the pidfile path used by the daemon.
func DaemonPIDPath() (string, error) {
	return DataPath("daemon.pid")
}

// EnsureDir creates a directory if it doesn't exist.
// Uses 0750 permissions (owner: rwx, group: rx, other: none).
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
