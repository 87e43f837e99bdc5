package summarize

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// openaiContextTokens is a conservative default for the gpt-4o family.
const openaiContextTokens = 128_000

type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(apiKey, model string) *openaiProvider {
	return &openaiProvider{client: openai.NewClient(apiKey), model: model}
}

func (p *openaiProvider) Name() string       { return "openai" }
func (p *openaiProvider) Model() string      { return p.model }
func (p *openaiProvider) ContextTokens() int { return openaiContextTokens }

func (p *openaiProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: userMessage,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: 1024,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
