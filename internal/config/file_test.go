package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteCreatesFileWithGivenPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := AtomicWrite(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want hello", got)
	}
}

func TestBackupAndWriteSkipsBackupOnFirstWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := BackupAndWrite(path, []byte("v1"), 0o600, DefaultBackupCount); err != nil {
		t.Fatalf("BackupAndWrite: %v", err)
	}
	if backups := ListBackups(path); len(backups) != 0 {
		t.Fatalf("expected no backups after the first write, got %d", len(backups))
	}
}

func TestBackupAndWritePreservesPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := BackupAndWrite(path, []byte("v1"), 0o600, DefaultBackupCount); err != nil {
		t.Fatalf("BackupAndWrite v1: %v", err)
	}
	if err := BackupAndWrite(path, []byte("v2"), 0o600, DefaultBackupCount); err != nil {
		t.Fatalf("BackupAndWrite v2: %v", err)
	}

	backups := ListBackups(path)
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	data, err := os.ReadFile(backups[0].Path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("backup content = %q, want v1", data)
	}
}

func TestRotateBackupsDropsOldestBeyondMax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	for i, v := range []string{"v1", "v2", "v3", "v4"} {
		if err := BackupAndWrite(path, []byte(v), 0o600, 2); err != nil {
			t.Fatalf("BackupAndWrite %d: %v", i, err)
		}
	}

	backups := ListBackups(path)
	if len(backups) != 2 {
		t.Fatalf("expected at most 2 backups kept, got %d", len(backups))
	}
}

func TestRestoreBackupRollsBackToPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := BackupAndWrite(path, []byte("good: true\n"), 0o600, DefaultBackupCount); err != nil {
		t.Fatalf("BackupAndWrite good: %v", err)
	}
	if err := BackupAndWrite(path, []byte("bad: [\n"), 0o600, DefaultBackupCount); err != nil {
		t.Fatalf("BackupAndWrite bad: %v", err)
	}

	if err := RestoreBackup(path, 0); err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(got) != "good: true\n" {
		t.Errorf("restored content = %q, want good: true", got)
	}
}

func TestRestoreBackupRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	backupPath := path + ".bak"

	if err := os.WriteFile(backupPath, []byte("foo: [1, 2"), 0o600); err != nil {
		t.Fatalf("write backup: %v", err)
	}

	if err := RestoreBackup(path, 0); err == nil {
		t.Error("expected an error restoring a backup containing invalid YAML")
	}
}

func TestRestoreBackupErrorsWhenIndexMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := RestoreBackup(path, 3); err == nil {
		t.Error("expected an error for a nonexistent backup index")
	}
}
