package watch

import (
	"testing"

	"github.com/lorehq/lore/internal/model"
)

func TestParseCursorConversationSingle(t *testing.T) {
	raw := []byte(`{
		"id": "550e8400-e29b-41d4-a716-446655440000",
		"workspacePath": "/home/user/project",
		"createdAt": 1700000000000,
		"updatedAt": 1700000100000,
		"messages": [
			{"id": "m1", "role": "user", "content": "fix this", "timestamp": 1700000000000},
			{"id": "m2", "role": "assistant", "content": "sure", "timestamp": 1700000050000},
			{"role": "unknown", "content": "ignored"}
		]
	}`)

	sess, msgs, ok := parseCursorConversation(raw, "/path/state.vscdb")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if sess.WorkingDirectory != "/home/user/project" {
		t.Fatalf("unexpected working directory %q", sess.WorkingDirectory)
	}
	if msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", msgs)
	}
}

func TestParseCursorConversationArrayForm(t *testing.T) {
	raw := []byte(`[
		{"id": "conv-1", "messages": [{"role": "user", "content": "hi"}]},
		{"id": "conv-2", "messages": [{"role": "user", "content": "second, unused"}]}
	]`)

	sess, msgs, ok := parseCursorConversation(raw, "/path/state.vscdb")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message from first conversation, got %d", len(msgs))
	}
	if sess.ID != ParseUUIDOrDerive("cursor", "conv-1") {
		t.Fatal("expected session id derived from first conversation's id")
	}
}

func TestParseCursorConversationEmptyMessages(t *testing.T) {
	_, _, ok := parseCursorConversation([]byte(`{"id": "x", "messages": []}`), "/path")
	if ok {
		t.Fatal("expected ok=false for empty messages")
	}
}

func TestParseCursorConversationGarbage(t *testing.T) {
	_, _, ok := parseCursorConversation([]byte(`not json`), "/path")
	if ok {
		t.Fatal("expected ok=false for unparseable value")
	}
}
