package llm

import "context"

// Completer is the provider-agnostic model contract: submit a prompt, receive text or a failure
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// CompleterFunc adapts a plain function to Completer
type CompleterFunc func(ctx context.Context, prompt, model string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt, model string) (string, error) {
	return f(ctx, prompt, model)
}

// Provider is one concrete model backend
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Kind is chosen once at configuration time
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)
