package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const claudeMaxTokens = 4096

// claudeProvider talks to the Anthropic Messages API
type claudeProvider struct {
	client anthropic.Client
}

// NewClaude returns a provider for the Anthropic API, or a compatible baseURL when set
func NewClaude(apiKey, baseURL string) Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &claudeProvider{client: anthropic.NewClient(opts...)}
}

func (p *claudeProvider) Name() string {
	return "claude"
}

func (p *claudeProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: claudeMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("claude returned no text content")
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}
