package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// geminiProvider rotates through API keys when one is rate limited
type geminiProvider struct {
	mu         sync.Mutex
	apiKeys    []string
	currentKey int
	generate   func(ctx context.Context, key, model, prompt string) (string, error)
}

// NewGemini returns a Gemini provider. At least one key is required.
func NewGemini(apiKeys []string) (Provider, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("gemini requires at least one API key")
	}
	return &geminiProvider{apiKeys: apiKeys, generate: generateGemini}, nil
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	var lastErr error

	for range len(p.apiKeys) {
		key := p.key()

		text, err := p.generate(ctx, key, model, prompt)
		if err == nil {
			return text, nil
		}
		if !isRateLimited(err) {
			return "", err
		}

		lastErr = err
		p.rotateKey()
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (p *geminiProvider) key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apiKeys[p.currentKey]
}

func (p *geminiProvider) rotateKey() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentKey = (p.currentKey + 1) % len(p.apiKeys)
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func generateGemini(ctx context.Context, key, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var b strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}

	return "", errors.New("empty response from Gemini")
}
