package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MockProvider(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), Config{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &mockClient{}, client)
}

func TestNew_DefaultsToMock(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &mockClient{}, client)
}

func TestNew_AnthropicRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Provider: "anthropic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an API key")
}

func TestNew_GeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an API key")
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "openai"`)
}

func TestNew_ProviderNameNormalized(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), Config{Provider: "  Mock "})
	require.NoError(t, err)
	assert.IsType(t, &mockClient{}, client)
}

func TestMock_ClassifyResponse(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Classify if this email is a valid business inquiry.\n\nEmail: need a website")
	require.NoError(t, err)

	var result struct {
		IsValid    bool    `json:"is_valid"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &result))
	assert.True(t, result.IsValid)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
	assert.NotEmpty(t, result.Reason)
}

func TestMock_ExtractResponse(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Extract structured information from this email.")
	require.NoError(t, err)

	var result struct {
		ClientName   string   `json:"client_name"`
		Requirements []string `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &result))
	assert.Equal(t, "John Doe", result.ClientName)
	assert.NotEmpty(t, result.Requirements)
}

func TestMock_ExtractFinancialVariant(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Extract structured information from this email about a portfolio management system.")
	require.NoError(t, err)

	var result struct {
		ClientName  string `json:"client_name"`
		ProjectType string `json:"project_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &result))
	assert.Equal(t, "Debabrata G.", result.ClientName)
	assert.Contains(t, result.ProjectType, "Portfolio")
}

func TestMock_PlanResponse(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Create a realistic project plan for a web application.")
	require.NoError(t, err)

	var result struct {
		Complexity string `json:"complexity"`
		Hours      int    `json:"total_estimated_hours"`
		Phases     []struct {
			Name  string `json:"name"`
			Hours int    `json:"hours"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &result))
	assert.Equal(t, "medium", result.Complexity)
	assert.Equal(t, 80, result.Hours)
	assert.Len(t, result.Phases, 3)
}

func TestMock_PlanFinancialIsComplex(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Create a realistic project plan for a finance platform.")
	require.NoError(t, err)

	var result struct {
		Complexity string `json:"complexity"`
		Hours      int    `json:"total_estimated_hours"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &result))
	assert.Equal(t, "complex", result.Complexity)
	assert.Equal(t, 160, result.Hours)
}

func TestMock_ProposalResponse(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "Write a professional project proposal email.")
	require.NoError(t, err)
	assert.Contains(t, resp, "OttoMail Solutions Team")
}

func TestMock_UnrecognizedPrompt(t *testing.T) {
	t.Parallel()

	resp, err := NewMock().Complete(context.Background(), "What is the weather today?")
	require.NoError(t, err)
	assert.JSONEq(t, `{"response": "Mock service response"}`, resp)
}
