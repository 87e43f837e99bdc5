// Package config loads and persists lore's YAML configuration
// (~/.lore/config.yaml): which watchers are enabled, the commit linker's
// auto-link window, the summary provider, and sync/redaction toggles.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/lorehq/lore/internal/paths"
)

// WatcherConfig toggles one watcher on or off. Absent entries default to
// enabled.
type WatcherConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the watcher should run, defaulting to true
// when unconfigured.
func (w WatcherConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// LinkerConfig configures the commit linker's automatic linking pass.
type LinkerConfig struct {
	// AutoLinkWindowMinutes is the symmetric time window
	// around a commit's author time within which a session's span must
	// fall to be a linking candidate.
	AutoLinkWindowMinutes int `yaml:"auto_link_window_minutes"`
	// CommitFooter appends a lore session-link trailer to commit messages
	// when the git hook is installed.
	CommitFooter bool `yaml:"commit_footer"`
}

// SummaryConfig configures the LLM provider used for `lore summarize`.
// Each field can be overridden by an environment variable at load time:
// LORE_SUMMARY_PROVIDER, LORE_SUMMARY_API_KEY, LORE_SUMMARY_MODEL.
type SummaryConfig struct {
	Provider string `yaml:"provider"` // "anthropic" | "openai"
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// SyncConfig configures the cloud sync engine's endpoint.
type SyncConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Config is the root of ~/.lore/config.yaml.
type Config struct {
	Watchers map[string]WatcherConfig `yaml:"watchers,omitempty"`
	Linker   LinkerConfig             `yaml:"linker"`
	Summary  SummaryConfig            `yaml:"summary"`
	Sync     SyncConfig               `yaml:"sync"`
	// MachineName overrides the identity package's generated display
	// name; empty means "use the generated one".
	MachineName string `yaml:"machine_name,omitempty"`
}

// DefaultConfig returns the configuration lore starts with before any
// user edits: a 30-minute auto-link window, wide enough to catch a commit
// made shortly before or after the session that produced it.
func DefaultConfig() *Config {
	return &Config{
		Watchers: map[string]WatcherConfig{},
		Linker: LinkerConfig{
			AutoLinkWindowMinutes: 30,
			CommitFooter:          false,
		},
		Summary: SummaryConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-haiku-20241022",
		},
		Sync: SyncConfig{
			BaseURL: "https://sync.lore.dev",
		},
	}
}

// WatcherEnabled reports whether the named watcher should run.
func (c *Config) WatcherEnabled(name string) bool {
	if c == nil {
		return true
	}
	return c.Watchers[name].IsEnabled()
}

// Load reads config.yaml from path, applying environment overrides for
// the summary provider (LORE_SUMMARY_PROVIDER, LORE_SUMMARY_API_KEY,
// LORE_SUMMARY_MODEL). A missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault loads config.yaml from the default lore home directory.
func LoadDefault() (*Config, error) {
	path, err := paths.DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// projectOverrideFile is the repo-local config lore looks for alongside
// the global one, so a monorepo can tighten its auto-link window or
// disable a watcher without touching every machine's ~/.lore/config.yaml.
const projectOverrideFile = ".lore.yaml"

// LoadWithProjectOverride loads the global config, then merges in
// dir/.lore.yaml (or the nearest one found walking up from dir) if
// present. Only fields actually set in the override file take effect;
// mergo.WithOverride lets a non-zero override field win while leaving
// every other field at the global value.
func LoadWithProjectOverride(dir string) (*Config, error) {
	cfg, err := LoadDefault()
	if err != nil {
		return nil, err
	}

	overridePath := findProjectOverride(dir)
	if overridePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", overridePath, err)
	}
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", overridePath, err)
	}
	if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge %s: %w", overridePath, err)
	}
	return cfg, nil
}

// findProjectOverride walks upward from dir looking for .lore.yaml,
// stopping at the filesystem root.
func findProjectOverride(dir string) string {
	for {
		candidate := filepath.Join(dir, projectOverrideFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LORE_SUMMARY_PROVIDER"); v != "" {
		cfg.Summary.Provider = v
	}
	if v := os.Getenv("LORE_SUMMARY_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
	}
	if v := os.Getenv("LORE_SUMMARY_MODEL"); v != "" {
		cfg.Summary.Model = v
	}
}

// Save marshals cfg as YAML and writes it atomically to path (temp file
// + rename), keeping a rotating backup of the previous version so a bad
// `lore config set` can be undone with RestoreBackup.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := BackupAndWrite(path, data, 0o600, DefaultBackupCount); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// SaveDefault saves cfg to the default lore config path.
func SaveDefault(cfg *Config) error {
	path, err := paths.DefaultConfigPath()
	if err != nil {
		return err
	}
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	return Save(path, cfg)
}

// toJQInput re-encodes cfg as the plain map[string]interface{} gojq
// expects, round-tripping through YAML first so struct tags (and the
// yaml-only omitempty rules) are honored the same way Save would.
func toJQInput(cfg *Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return tree, nil
}

func fromJQResult(v interface{}, cfg *Config) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: marshal result: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: unmarshal result: %w", err)
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("config: marshal tree: %w", err)
	}
	if err := yaml.Unmarshal(out, cfg); err != nil {
		return fmt.Errorf("config: re-parse after set: %w", err)
	}
	return nil
}

// Get resolves a dotted key path ("linker.auto_link_window_minutes",
// "summary.provider", ...) against cfg for `lore config get`, by compiling
// it as a gojq filter (".linker.auto_link_window_minutes") and running it
// against a JSON re-encoding of cfg. Arbitrary nested paths resolve
// without a hand-written accessor per field.
func Get(cfg *Config, key string) (string, bool, error) {
	tree, err := toJQInput(cfg)
	if err != nil {
		return "", false, err
	}

	query, err := gojq.Parse("." + key + "?")
	if err != nil {
		return "", false, fmt.Errorf("config: invalid key %q: %w", key, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return "", false, fmt.Errorf("config: compile %q: %w", key, err)
	}

	iter := code.Run(tree)
	v, ok := iter.Next()
	if !ok || v == nil {
		return "", false, nil
	}
	if e, ok := v.(error); ok {
		return "", false, fmt.Errorf("config: evaluate %q: %w", key, e)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "", false, fmt.Errorf("config: marshal value: %w", err)
	}
	// Unquote plain strings so `lore config get summary.provider` prints
	// anthropic, not "anthropic".
	var s string
	if err := json.Unmarshal(out, &s); err == nil {
		return s, true, nil
	}
	return string(out), true, nil
}

// Set resolves a dotted key path and overwrites the leaf value via the
// gojq assignment filter (".linker.auto_link_window_minutes = 45"), then
// re-parses cfg from the mutated tree so unknown keys and type mismatches
// surface as errors rather than silently no-opping.
func Set(cfg *Config, key, value string) error {
	tree, err := toJQInput(cfg)
	if err != nil {
		return err
	}

	// value is treated as a JSON literal when it parses as one (numbers,
	// booleans, quoted strings), falling back to a bare string otherwise,
	// so `lore config set linker.commit_footer true` sets a real bool.
	var literal interface{}
	if err := json.Unmarshal([]byte(value), &literal); err != nil {
		literal = value
	}
	literalJSON, err := json.Marshal(literal)
	if err != nil {
		return fmt.Errorf("config: marshal %q: %w", value, err)
	}

	query, err := gojq.Parse(fmt.Sprintf(".%s = %s", key, literalJSON))
	if err != nil {
		return fmt.Errorf("config: invalid key %q: %w", key, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("config: compile %q: %w", key, err)
	}

	iter := code.Run(tree)
	v, ok := iter.Next()
	if !ok {
		return fmt.Errorf("config: unknown key %q", key)
	}
	if e, ok := v.(error); ok {
		return fmt.Errorf("config: set %q: %w", key, e)
	}

	return fromJQResult(v, cfg)
}
