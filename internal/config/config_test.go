package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Linker.AutoLinkWindowMinutes != 30 {
		t.Errorf("expected default auto-link window, got %d", cfg.Linker.AutoLinkWindowMinutes)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Linker.AutoLinkWindowMinutes = 45
	cfg.Summary.Provider = "openai"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Linker.AutoLinkWindowMinutes != 45 {
		t.Errorf("auto_link_window_minutes = %d, want 45", got.Linker.AutoLinkWindowMinutes)
	}
	if got.Summary.Provider != "openai" {
		t.Errorf("summary.provider = %q, want openai", got.Summary.Provider)
	}
}

func TestGetResolvesDottedPath(t *testing.T) {
	cfg := DefaultConfig()
	v, ok, err := Get(cfg, "summary.provider")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || v != "anthropic" {
		t.Errorf("Get(summary.provider) = %q, %v, want anthropic, true", v, ok)
	}
}

func TestGetUnknownKeyIsNotFound(t *testing.T) {
	cfg := DefaultConfig()
	_, ok, err := Get(cfg, "summary.nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for an unknown key")
	}
}

func TestSetUpdatesNestedIntField(t *testing.T) {
	cfg := DefaultConfig()
	if err := Set(cfg, "linker.auto_link_window_minutes", "60"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Linker.AutoLinkWindowMinutes != 60 {
		t.Errorf("auto_link_window_minutes = %d, want 60", cfg.Linker.AutoLinkWindowMinutes)
	}
}

func TestSetUpdatesStringField(t *testing.T) {
	cfg := DefaultConfig()
	if err := Set(cfg, "summary.model", "gpt-4o-mini"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Summary.Model != "gpt-4o-mini" {
		t.Errorf("summary.model = %q, want gpt-4o-mini", cfg.Summary.Model)
	}
}

func TestSetRejectsUnknownTopLevelKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := Set(cfg, "nonexistent.field", "1"); err == nil {
		t.Error("expected an error setting an unknown top-level key")
	}
}

func TestLoadWithProjectOverrideMergesNonZeroFields(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LORE_SUMMARY_PROVIDER", "")

	projectDir := t.TempDir()
	override := "linker:\n  auto_link_window_minutes: 5\n"
	if err := os.WriteFile(filepath.Join(projectDir, projectOverrideFile), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	nested := filepath.Join(projectDir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := LoadWithProjectOverride(nested)
	if err != nil {
		t.Fatalf("LoadWithProjectOverride: %v", err)
	}
	if cfg.Linker.AutoLinkWindowMinutes != 5 {
		t.Errorf("auto_link_window_minutes = %d, want 5 from override", cfg.Linker.AutoLinkWindowMinutes)
	}
	if cfg.Summary.Provider != "anthropic" {
		t.Errorf("summary.provider = %q, want default anthropic (unset by override)", cfg.Summary.Provider)
	}
}

func TestFindProjectOverrideWalksUpToAncestor(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, projectOverrideFile), []byte("linker:\n  commit_footer: true\n"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	nested := filepath.Join(dir, "x", "y", "z")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if got := findProjectOverride(nested); got != filepath.Join(dir, projectOverrideFile) {
		t.Errorf("findProjectOverride = %q, want %q", got, filepath.Join(dir, projectOverrideFile))
	}
}

func TestFindProjectOverrideReturnsEmptyWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	if got := findProjectOverride(dir); got != "" {
		t.Errorf("findProjectOverride = %q, want empty", got)
	}
}
