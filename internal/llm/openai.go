package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are an expert in content metadata generation. Follow the requested output format exactly."

// openAIProvider talks to any OpenAI-compatible chat endpoint.
// Local Ollama is served through its /v1 compatibility API.
type openAIProvider struct {
	name   string
	client openai.Client
}

func newOpenAIProvider(name, apiKey, baseURL string) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{name: name, client: openai.NewClient(opts...)}
}

// NewOllama returns a provider for a local Ollama host such as http://localhost:11434
func NewOllama(host string) Provider {
	base := strings.TrimRight(host, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return newOpenAIProvider("ollama", "ollama", base+"/")
}

// NewOpenAI returns a provider for the OpenAI API, or a compatible baseURL when set
func NewOpenAI(apiKey, baseURL string) Provider {
	return newOpenAIProvider("openai", apiKey, baseURL)
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       model,
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(p.name + " returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
