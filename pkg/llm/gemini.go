package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiClient implements Client using Google's genai SDK.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
}

// NewGemini creates a Client backed by the Gemini API.
func NewGemini(ctx context.Context, cfg Config) (Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &geminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if c.temperature > 0 {
		genCfg = &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(c.temperature)),
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini complete")
	}

	return resp.Text(), nil
}
