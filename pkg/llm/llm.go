// Package llm abstracts the text-completion providers consumed by the
// pipeline. Every provider is plain text in, plain text out; the pipeline
// neither streams nor uses tool calling.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Client is the completion service consumed by AI-backed pipeline stages.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterizes a provider. The provider is chosen once
// at startup; the pipeline never branches on it again.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// New constructs the configured provider. Unknown providers are an error
// rather than a silent mock substitution.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, eris.New("llm: anthropic provider requires an API key")
		}
		return NewAnthropic(cfg), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, eris.New("llm: gemini provider requires an API key")
		}
		return NewGemini(ctx, cfg)
	case "mock", "":
		return NewMock(), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
