package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

// anthropicClient implements Client using the official anthropic-sdk-go.
type anthropicClient struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic creates a Client backed by the Anthropic Messages API.
func NewAnthropic(cfg Config) Client {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &anthropicClient{
		client:      sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic complete")
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
