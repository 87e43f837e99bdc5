package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lorehq/lore/internal/model"
)

func TestParseCodexSessionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rollout-test.jsonl")
	content := `{"type":"session_meta","timestamp":"2026-01-01T00:00:00Z","payload":{"id":"550e8400-e29b-41d4-a716-446655440000","timestamp":"2026-01-01T00:00:00Z","cwd":"/home/user/project","cli_version":"1.2.3","model_provider":"openai","git":{"branch":"main"}}}
{"type":"response_item","timestamp":"2026-01-01T00:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}
{"type":"response_item","timestamp":"2026-01-01T00:00:05Z","payload":{"type":"message","role":"assistant","content":[{"type":"text","text":"hi there"}]}}
not json at all
{"type":"response_item","timestamp":"2026-01-01T00:00:10Z","payload":{"type":"reasoning"}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	parsed, err := parseCodexSessionFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(parsed.messages))
	}
	if parsed.cwd != "/home/user/project" {
		t.Fatalf("expected cwd to be set from session_meta, got %q", parsed.cwd)
	}
	if parsed.gitBranch != "main" {
		t.Fatalf("expected git branch 'main', got %q", parsed.gitBranch)
	}

	sess, msgs := parsed.toStorageModels()
	if sess.ID.String() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Fatalf("expected session id to pass through as the valid uuid, got %s", sess.ID)
	}
	if len(msgs) != 2 || msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestCodexWatcherInfoAndPaths(t *testing.T) {
	w := CodexWatcher{}
	if w.Info().Name != "codex" {
		t.Fatalf("expected name 'codex', got %q", w.Info().Name)
	}
	if len(w.WatchPaths()) != 1 {
		t.Fatal("expected one watch path for codex")
	}
}
