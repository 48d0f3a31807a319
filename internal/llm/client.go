package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/config"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
)

const DefaultTimeout = 300 * time.Second

// Client applies a per-request timeout to a Provider and records outcomes
type Client struct {
	provider Provider
	kind     Kind
	timeout  time.Duration
	logger   logger.Logger
}

func NewClient(p Provider, kind Kind, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{provider: p, kind: kind, timeout: timeout, logger: log}
}

// NewFromConfig selects the provider described by cfg
func NewFromConfig(cfg config.AIConfig, log logger.Logger) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch Kind(cfg.Provider) {
	case KindLocal, "":
		return NewClient(NewOllama(cfg.Host), KindLocal, timeout, log), nil
	case KindRemote:
		switch cfg.Remote {
		case config.RemoteOpenAI:
			if len(cfg.APIKeys) == 0 {
				return nil, errors.New("openai requires an API key (ai.api_keys or OPENAI_API_KEY)")
			}
			return NewClient(NewOpenAI(cfg.APIKeys[0], cfg.BaseURL), KindRemote, timeout, log), nil
		case config.RemoteClaude:
			if len(cfg.APIKeys) == 0 {
				return nil, errors.New("claude requires an API key (ai.api_keys or ANTHROPIC_API_KEY)")
			}
			return NewClient(NewClaude(cfg.APIKeys[0], cfg.BaseURL), KindRemote, timeout, log), nil
		case config.RemoteGemini:
			p, err := NewGemini(cfg.APIKeys)
			if err != nil {
				return nil, err
			}
			return NewClient(p, KindRemote, timeout, log), nil
		default:
			return nil, fmt.Errorf("unsupported remote provider %q", cfg.Remote)
		}
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", cfg.Provider)
	}
}

func (c *Client) Kind() Kind {
	return c.kind
}

func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Complete sends prompt to model. An expired timeout is an ordinary failure.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := c.provider.Name()
	started := time.Now()
	text, err := c.provider.Complete(ctx, prompt, model)

	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.RecordModelRequest(name, "timeout")
		return "", fmt.Errorf("%s request timed out after %s: %w", name, c.timeout, context.DeadlineExceeded)
	case err != nil:
		metrics.RecordModelRequest(name, "failed")
		return "", err
	case strings.TrimSpace(text) == "":
		metrics.RecordModelRequest(name, "empty")
		return "", fmt.Errorf("%s returned an empty response", name)
	}

	metrics.RecordModelRequest(name, "success")
	c.logger.Debug(ctx, "%s/%s responded in %s (%d chars)", name, model, time.Since(started).Round(time.Millisecond), len(text))
	return text, nil
}
