package watch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseVSCodeTask(t *testing.T) {
	dir := t.TempDir()
	taskDir := filepath.Join(dir, "task-1")
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	history := `[
		{"role": "user", "content": "fix the bug", "ts": 1700000000000},
		{"role": "assistant", "content": [{"type": "text", "text": "sure, looking"}, {"type": "tool_use", "id": "1", "name": "read"}], "ts": 1700000030000}
	]`
	historyPath := filepath.Join(taskDir, "api_conversation_history.json")
	if err := os.WriteFile(historyPath, []byte(history), 0o644); err != nil {
		t.Fatalf("write history: %v", err)
	}
	metadata := `{"dir": "/home/user/project"}`
	if err := os.WriteFile(filepath.Join(taskDir, "task_metadata.json"), []byte(metadata), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	sess, msgs, ok, err := parseVSCodeTask(historyPath, "cline")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if sess.WorkingDirectory != "/home/user/project" {
		t.Fatalf("expected working directory from metadata, got %q", sess.WorkingDirectory)
	}
	if sess.Tool != "cline" {
		t.Fatalf("expected tool 'cline', got %q", sess.Tool)
	}
}

func TestFindVSCodeTasksOnlyListsTasksWithHistory(t *testing.T) {
	dir := t.TempDir()
	withHistory := filepath.Join(dir, "task-a")
	withoutHistory := filepath.Join(dir, "task-b")
	if err := os.MkdirAll(withHistory, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(withoutHistory, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(withHistory, "api_conversation_history.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := findVSCodeTasks(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 task with history, got %d", len(found))
	}
}

func TestVSCodeExtensionConfigsAreDistinct(t *testing.T) {
	configs := []VSCodeExtensionConfig{ClineConfig, RooCodeConfig, KiloCodeConfig}
	seen := map[string]bool{}
	for _, c := range configs {
		if seen[c.ExtensionID] {
			t.Fatalf("duplicate extension id %q", c.ExtensionID)
		}
		seen[c.ExtensionID] = true
	}
}
