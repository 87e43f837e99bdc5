package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lorehq/lore/internal/model"
)

func writeTempHistory(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, aiderHistoryFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write history file: %v", err)
	}
	return path
}

func TestAiderWatcherInfo(t *testing.T) {
	w := AiderWatcher{}
	info := w.Info()
	if info.Name != "aider" {
		t.Fatalf("expected name 'aider', got %q", info.Name)
	}
	if len(w.WatchPaths()) != 0 {
		t.Fatal("expected aider to report no watch paths")
	}
}

func TestParseAiderHistorySimpleConversation(t *testing.T) {
	content := `#### Hello, can you help me with a Go project?

Sure! I'd be happy to help. What would you like to do?

#### Can you write a function?

Here's a simple function:

` + "```go" + `
func hello() {
	fmt.Println("hello")
}
` + "```" + `
`
	path := writeTempHistory(t, content)

	result, err := parseAiderHistory(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result))
	}
	src := result[0]
	if src.Session.Tool != "aider" {
		t.Fatalf("expected tool 'aider', got %q", src.Session.Tool)
	}
	if len(src.Messages) < 2 {
		t.Fatalf("expected at least 2 messages, got %d", len(src.Messages))
	}
	if src.Messages[0].Role != model.RoleUser {
		t.Fatalf("expected first message to be user, got %q", src.Messages[0].Role)
	}
}

func TestParseAiderHistoryWithToolOutput(t *testing.T) {
	content := `#### Run the tests

> Running tests...
> test result: ok. 5 passed; 0 failed

All tests passed successfully!
`
	path := writeTempHistory(t, content)

	result, err := parseAiderHistory(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result))
	}
	src := result[0]
	if len(src.Messages) != 2 {
		t.Fatalf("expected 2 messages (user + assistant w/ tool output), got %d", len(src.Messages))
	}
	if src.Messages[0].Role != model.RoleUser {
		t.Fatalf("expected first message user, got %q", src.Messages[0].Role)
	}
	if src.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("expected second message assistant, got %q", src.Messages[1].Role)
	}
	assistantText := src.Messages[1].Content.ExtractText()
	if !strings.Contains(assistantText, "Running tests") || !strings.Contains(assistantText, "All tests passed") {
		t.Fatalf("expected assistant content to fold in tool output, got %q", assistantText)
	}
}

func TestParseAiderHistoryEmptyFile(t *testing.T) {
	path := writeTempHistory(t, "")
	result, err := parseAiderHistory(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected no sessions for empty file, got %d", len(result))
	}
}

func TestScanDirectoriesForAiderFilesSkipsNoiseDirs(t *testing.T) {
	root := t.TempDir()
	mustMkHistory(t, filepath.Join(root, "project-a"))
	mustMkHistory(t, filepath.Join(root, "node_modules", "nested"))

	found := ScanDirectoriesForAiderFiles([]string{root}, nil)
	if len(found) != 1 {
		t.Fatalf("expected to skip node_modules, found %d files: %v", len(found), found)
	}
}

func mustMkHistory(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, aiderHistoryFile)
	if err := os.WriteFile(path, []byte("#### hi\n\nhello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
