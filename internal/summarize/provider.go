// Package summarize generates prose summaries of a session's conversation
// via a pluggable LLM provider, grounded on the same simple-message /
// context-budgeting shape the teacher's internal/llm package used for
// checkpoint and compaction summaries.
package summarize

import (
	"context"
	"fmt"

	"github.com/lorehq/lore/internal/config"
)

// Provider sends one non-streaming completion request and returns the
// response text. Tool calling and streaming are out of scope here: a
// session summary is a single round trip.
type Provider interface {
	// Complete sends systemPrompt and userMessage and returns the model's
	// text response.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// Name identifies the provider for model.Summary.Provider ("anthropic", "openai").
	Name() string
	// Model identifies the specific model used, for model.Summary.Model.
	Model() string
	// ContextTokens is the provider's context window, used to budget how
	// much conversation text SummarizeSession can include.
	ContextTokens() int
}

// NewFromConfig builds the Provider named by cfg.Summary.Provider.
func NewFromConfig(cfg config.SummaryConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarize: no API key configured for provider %q (set %s.api_key or LORE_SUMMARY_API_KEY)", cfg.Provider, cfg.Provider)
	}
	switch cfg.Provider {
	case "", "anthropic":
		model := cfg.Model
		if model == "" {
			model = "claude-3-5-haiku-20241022"
		}
		return newAnthropicProvider(cfg.APIKey, model), nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return newOpenAIProvider(cfg.APIKey, model), nil
	default:
		return nil, fmt.Errorf("summarize: unknown provider %q", cfg.Provider)
	}
}
