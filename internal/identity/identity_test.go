package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromCreatesIdentityOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.json")

	m, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.ID.String() == "" {
		t.Fatal("expected a generated machine id")
	}
	if m.Name == "" {
		t.Fatal("expected a default name")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected identity file to be persisted: %v", err)
	}
}

func TestLoadFromIsStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.json")

	first, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same id across loads, got %s and %s", first.ID, second.ID)
	}
}

func TestRenameUpdatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.json")

	orig, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	renamed, err := Rename(path, "dev-laptop")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "dev-laptop" {
		t.Fatalf("expected new name, got %q", renamed.Name)
	}
	if renamed.ID != orig.ID {
		t.Fatal("rename must not change the machine id")
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Name != "dev-laptop" {
		t.Fatalf("expected rename to persist, got %q", reloaded.Name)
	}
}
