package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/tokens"
)

// SystemPrompt instructs the model to produce a short, factual session
// recap rather than a conversational reply.
const SystemPrompt = "You are a terse technical summarizer. Given a transcript of an AI coding session, write a 2-4 sentence summary of what was accomplished. Do not include pleasantries or restate the prompt."

// outputBuffer reserves room in the context window for the model's
// response, mirroring the teacher's checkpoint/compaction budgeting.
const outputBuffer = 2048

// SummarizeSession builds a condensed transcript from messages (thinking
// blocks excluded by MessageContent's text extraction), budgets it
// against the provider's context window, and returns a model.Summary ready
// for Store.SetSummary.
func SummarizeSession(ctx context.Context, p Provider, sess model.Session, messages []model.Message) (model.Summary, error) {
	budget := p.ContextTokens() - outputBuffer
	if budget < 1000 {
		budget = 1000
	}

	transcript := buildTranscript(messages, budget)
	if transcript == "" {
		return model.Summary{}, fmt.Errorf("summarize: session %s has no summarizable text", sess.ID)
	}

	userMessage := fmt.Sprintf("Tool: %s\nWorking directory: %s\n\nTranscript:\n%s", sess.Tool, sess.WorkingDirectory, transcript)

	text, err := p.Complete(ctx, SystemPrompt, userMessage)
	if err != nil {
		return model.Summary{}, err
	}

	return model.Summary{
		SessionID: sess.ID,
		Text:      strings.TrimSpace(text),
		Provider:  p.Name(),
		Model:     p.Model(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// buildTranscript renders messages as "role: text" lines, stopping once
// the estimated token count would exceed maxTokens. Truncation drops the
// oldest messages first, keeping the conversation's most recent turns —
// those are the ones most likely to describe the outcome.
func buildTranscript(messages []model.Message, maxTokens int) string {
	type line struct {
		text   string
		tokens int
	}
	var rendered []line
	for _, m := range messages {
		text := m.Content.ExtractText()
		if text == "" {
			continue
		}
		l := fmt.Sprintf("%s: %s", m.Role, text)
		rendered = append(rendered, line{text: l, tokens: tokens.Estimate(l) + 4})
	}

	total := 0
	start := len(rendered)
	for i := len(rendered) - 1; i >= 0; i-- {
		if total+rendered[i].tokens > maxTokens {
			break
		}
		total += rendered[i].tokens
		start = i
	}

	var out []string
	for _, l := range rendered[start:] {
		out = append(out, l.text)
	}
	return strings.Join(out, "\n")
}
