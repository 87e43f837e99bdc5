package watch

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// ParseRole maps common role strings used across AI tools to a MessageRole.
// Unknown roles return ("", false) so callers can skip the message rather
// than coerce it, per the normalization rule every watcher follows.
func ParseRole(role string) (model.MessageRole, bool) {
	switch role {
	case "user", "human":
		return model.RoleUser, true
	case "assistant":
		return model.RoleAssistant, true
	case "system":
		return model.RoleSystem, true
	default:
		return "", false
	}
}

// ParseTimestampMillis converts Unix milliseconds to UTC time.
func ParseTimestampMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseUUIDOrDerive parses s as a UUID, passing valid UUIDs through
// unchanged. For non-UUID native ids, it deterministically derives one from
// (tool, s) so the same input always yields the same id across runs and
// machines.
func ParseUUIDOrDerive(tool, s string) uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return model.DeterministicID(model.NamespaceLore, tool+":"+s)
}

// VSCodeGlobalStorage returns the platform-specific path to VS Code's
// global storage directory, where many extensions (Cline, Roo, Kilo) keep
// their task history.
func VSCodeGlobalStorage() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Code", "User", "globalStorage")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Code", "User", "globalStorage")
	default:
		cfg := os.Getenv("XDG_CONFIG_HOME")
		if cfg == "" {
			cfg = filepath.Join(home, ".config")
		}
		return filepath.Join(cfg, "Code", "User", "globalStorage")
	}
}

// skipDirs are noisy directories never descended into when scanning project
// trees for chat logs (VCS internals, language caches, build outputs).
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "target": true, "dist": true,
	"build": true, "__pycache__": true, ".venv": true, "venv": true,
	".tox": true, ".mypy_cache": true, ".pytest_cache": true,
	".idea": true, ".vscode": true, "vendor": true, ".cache": true,
	".DS_Store": true,
}

// allowedHiddenDirs are the only hidden (dot-prefixed) directories a project
// scan will descend into, since they're known tool-state directories.
var allowedHiddenDirs = map[string]bool{
	".aider": true,
}

// ShouldDescend reports whether a directory entry should be walked into
// during a project-tree scan, applying the standard skip/allow-hidden rules.
func ShouldDescend(name string) bool {
	if skipDirs[name] {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return allowedHiddenDirs[name]
	}
	return true
}
