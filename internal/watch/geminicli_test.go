package watch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseGeminiSessionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session-1.json")
	content := `{
		"sessionId": "550e8400-e29b-41d4-a716-446655440000",
		"projectHash": "abc123",
		"startTime": "2026-01-01T00:00:00Z",
		"lastUpdated": "2026-01-01T00:05:00Z",
		"messages": [
			{"id": "m1", "timestamp": "2026-01-01T00:00:01Z", "type": "user", "content": "hello"},
			{"id": "m2", "timestamp": "2026-01-01T00:00:05Z", "type": "gemini", "content": "hi there"},
			{"timestamp": "2026-01-01T00:00:06Z", "type": "unknown", "content": "ignored"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	parsed, err := parseGeminiSessionFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(parsed.messages))
	}

	sess, msgs := parsed.toStorageModels()
	if sess.ID.String() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Fatalf("expected session id to pass through, got %s", sess.ID)
	}
	if sess.WorkingDirectory != "<project:abc123>" {
		t.Fatalf("unexpected working directory %q", sess.WorkingDirectory)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 storage messages, got %d", len(msgs))
	}
}

func TestGeminiCLIWatcherInfo(t *testing.T) {
	w := GeminiCLIWatcher{}
	if w.Info().Name != "gemini" {
		t.Fatalf("expected name 'gemini', got %q", w.Info().Name)
	}
}
