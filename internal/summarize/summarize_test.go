package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

type fakeProvider struct {
	contextTokens int
	lastSystem    string
	lastUser      string
	response      string
	err           error
}

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userMessage
	return f.response, f.err
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) Model() string      { return "fake-model" }
func (f *fakeProvider) ContextTokens() int { return f.contextTokens }

func testSession() model.Session {
	return model.Session{
		ID:               uuid.New(),
		Tool:             "claude-code",
		WorkingDirectory: "/home/user/project",
	}
}

func textMessage(role model.MessageRole, text string) model.Message {
	return model.Message{
		ID:      uuid.New(),
		Role:    role,
		Content: model.NewTextContent(text),
	}
}

func TestSummarizeSessionReturnsProviderText(t *testing.T) {
	p := &fakeProvider{contextTokens: 100000, response: "  Fixed the auth bug and added tests.  "}
	sess := testSession()
	messages := []model.Message{
		textMessage(model.RoleUser, "the login flow is broken"),
		textMessage(model.RoleAssistant, "found it, patching the session check"),
	}

	summary, err := SummarizeSession(context.Background(), p, sess, messages)
	if err != nil {
		t.Fatalf("SummarizeSession: %v", err)
	}
	if summary.Text != "Fixed the auth bug and added tests." {
		t.Fatalf("expected trimmed provider text, got %q", summary.Text)
	}
	if summary.SessionID != sess.ID {
		t.Fatalf("summary session id mismatch")
	}
	if summary.Provider != "fake" || summary.Model != "fake-model" {
		t.Fatalf("unexpected provider/model: %q/%q", summary.Provider, summary.Model)
	}
	if !strings.Contains(p.lastUser, "Tool: claude-code") {
		t.Fatalf("expected user message to carry tool name, got %q", p.lastUser)
	}
	if !strings.Contains(p.lastUser, "user: the login flow is broken") {
		t.Fatalf("expected transcript to include rendered messages, got %q", p.lastUser)
	}
}

func TestSummarizeSessionErrorsWhenTranscriptEmpty(t *testing.T) {
	p := &fakeProvider{contextTokens: 100000}
	sess := testSession()
	messages := []model.Message{
		{ID: uuid.New(), Role: model.RoleAssistant, Content: model.NewTextContent("")},
	}

	if _, err := SummarizeSession(context.Background(), p, sess, messages); err == nil {
		t.Fatal("expected an error for a session with no summarizable text")
	}
}

func TestSummarizeSessionPropagatesProviderError(t *testing.T) {
	p := &fakeProvider{contextTokens: 100000, err: context.DeadlineExceeded}
	sess := testSession()
	messages := []model.Message{textMessage(model.RoleUser, "hello")}

	if _, err := SummarizeSession(context.Background(), p, sess, messages); err == nil {
		t.Fatal("expected provider error to propagate")
	}
}

func TestSummarizeSessionDropsOldestMessagesWhenOverBudget(t *testing.T) {
	// a tiny context window forces buildTranscript to keep only the most
	// recent turns, which is the behavior most likely to describe the
	// session's outcome.
	p := &fakeProvider{contextTokens: 1064} // budget floors to 1000 after outputBuffer
	sess := testSession()
	messages := []model.Message{
		textMessage(model.RoleUser, strings.Repeat("old filler content ", 400)),
		textMessage(model.RoleAssistant, "final recent reply that should survive"),
	}

	_, err := SummarizeSession(context.Background(), p, sess, messages)
	if err != nil {
		t.Fatalf("SummarizeSession: %v", err)
	}
	if !strings.Contains(p.lastUser, "final recent reply that should survive") {
		t.Fatalf("expected the most recent message to survive truncation, got %q", p.lastUser)
	}
}
