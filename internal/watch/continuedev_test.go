package watch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseContinueSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc.json")
	content := `{
		"sessionId": "abc-session",
		"workspaceDirectory": "/home/user/project",
		"chatModelTitle": "gpt-4",
		"history": [
			{"message": {"role": "user", "content": "hello"}},
			{"message": {"role": "assistant", "content": [{"type": "text", "text": "hi"}]}},
			{"message": {"role": "thinking", "content": "internal reasoning"}},
			{"message": {"role": "tool", "content": "tool output"}}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sess, msgs, ok, err := parseContinueSession(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages (thinking/tool skipped), got %d", len(msgs))
	}
	if sess.Model != "gpt-4" {
		t.Fatalf("expected model 'gpt-4', got %q", sess.Model)
	}
	if sess.WorkingDirectory != "/home/user/project" {
		t.Fatalf("unexpected working directory %q", sess.WorkingDirectory)
	}
}

func TestParseContinueSessionEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(path, []byte(`{"sessionId":"x","history":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, ok, err := parseContinueSession(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for empty history")
	}
}
