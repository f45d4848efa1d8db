package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ottomail/proposal-cli/internal/config"
	"github.com/ottomail/proposal-cli/internal/model"
	"github.com/ottomail/proposal-cli/pkg/llm"
)

// stubLLM adapts a function to the llm.Client interface.
type stubLLM struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.fn(ctx, prompt)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.TimeoutSecs = 5
	return cfg
}

// permissiveStore accepts all bookkeeping calls.
func permissiveStore() *mockStore {
	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-1"}, nil)
	st.On("UpdateRunStep", mock.Anything, "run-1", mock.Anything).Return(nil)
	st.On("UpdateRunResult", mock.Anything, "run-1", mock.Anything, mock.Anything).Return(nil)
	st.On("CreateClient", mock.Anything, mock.Anything).Return("client-1", nil)
	st.On("CreateProposal", mock.Anything, mock.Anything).Return("prop-1", nil)
	return st
}

func TestPipelineRun_HappyPathWithMockProvider(t *testing.T) {
	st := permissiveStore()
	mail := new(mockMail)
	mail.On("CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("draft-1", nil)
	notifier := new(mockNotifier)
	notifier.On("SendMessage", mock.Anything, mock.Anything).Return(nil)

	p := New(testConfig(), st, llm.NewMock(), mail, notifier)

	state, err := p.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.True(t, state.IsValidInquiry)
	assert.Equal(t, "John Doe", state.ClientName)
	require.NotNil(t, state.ProjectPlan)
	assert.Equal(t, model.ComplexityMedium, state.ProjectPlan.Complexity)
	require.NotNil(t, state.CostEstimate)
	// 80h * $50 * 1.5 = $6,000 +/- 10%
	assert.Equal(t, 5400, state.CostEstimate.Min)
	assert.Equal(t, 6600, state.CostEstimate.Max)
	assert.NotEmpty(t, state.ProposalText)
	assert.Equal(t, "client-1", state.ClientID)
	assert.Equal(t, "prop-1", state.ProposalID)
	assert.Equal(t, "draft-1", state.DraftID)
	assert.True(t, state.NeedsHumanReview)
	assert.Equal(t, model.StepNotified, state.CurrentStep)

	// Every stage checkpointed, none via fallback.
	assert.Equal(t, []model.Step{
		model.StepStarted,
		model.StepClassified,
		model.StepExtracted,
		model.StepPlanned,
		model.StepCosted,
		model.StepProposalGenerated,
		model.StepStored,
		model.StepDraftCreated,
		model.StepNotified,
	}, state.StepHistory)

	st.AssertCalled(t, "UpdateRunResult", mock.Anything, "run-1", model.RunStatusComplete, mock.Anything)
}

func TestPipelineRun_FinancialInquiryUsesComplexTier(t *testing.T) {
	st := permissiveStore()
	mail := new(mockMail)
	mail.On("CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("draft-1", nil)
	notifier := new(mockNotifier)
	notifier.On("SendMessage", mock.Anything, mock.Anything).Return(nil)

	p := New(testConfig(), st, llm.NewMock(), mail, notifier)

	email := testEmail()
	email.Subject = "AI Agent for Portfolio Management"
	email.Body = "We need an AI agent for our portfolio management system with real-time tracking."

	state, err := p.Run(context.Background(), email)
	require.NoError(t, err)

	require.NotNil(t, state.ProjectPlan)
	assert.Equal(t, model.ComplexityComplex, state.ProjectPlan.Complexity)
	assert.Equal(t, 160, state.ProjectPlan.TotalEstimatedHours)
	// 160h * $50 * 2.0 = $16,000 +/- 10%
	assert.Equal(t, 14400, state.CostEstimate.Min)
	assert.Equal(t, 17600, state.CostEstimate.Max)
}

func TestPipelineRun_BranchA_InvalidInquiryStopsEarly(t *testing.T) {
	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-1"}, nil)
	st.On("UpdateRunStep", mock.Anything, "run-1", mock.Anything).Return(nil)
	st.On("UpdateRunResult", mock.Anything, "run-1", model.RunStatusRejected, mock.Anything).Return(nil)

	client := &stubLLM{fn: func(_ context.Context, prompt string) (string, error) {
		return `{"is_valid": false, "confidence": 0.9, "reason": "Recruiting spam"}`, nil
	}}
	p := New(testConfig(), st, client, nil, nil)

	state, err := p.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.False(t, state.IsValidInquiry)
	assert.Equal(t, "Recruiting spam", state.ClassificationReason)

	// Downstream fields keep their initialization defaults.
	assert.Empty(t, state.ClientName)
	assert.Nil(t, state.ProjectPlan)
	assert.Nil(t, state.CostEstimate)
	assert.Empty(t, state.ProposalText)
	assert.Empty(t, state.DraftID)
	assert.False(t, state.NeedsHumanReview)
	assert.Equal(t, model.StepClassified, state.CurrentStep)

	st.AssertCalled(t, "UpdateRunResult", mock.Anything, "run-1", model.RunStatusRejected, mock.Anything)
	st.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything)
}

func TestPipelineRun_ClassificationFailureRejects(t *testing.T) {
	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-1"}, nil)
	st.On("UpdateRunStep", mock.Anything, "run-1", mock.Anything).Return(nil)
	st.On("UpdateRunResult", mock.Anything, "run-1", model.RunStatusRejected, mock.Anything).Return(nil)

	client := &stubLLM{fn: func(context.Context, string) (string, error) {
		return "", errors.New("provider down")
	}}
	cfg := testConfig()
	p := New(cfg, st, client, nil, nil)
	p.retry.Attempts = 1 // provider is deterministic here, no point retrying

	state, err := p.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.False(t, state.IsValidInquiry)
	assert.Zero(t, state.ConfidenceScore)
	assert.Equal(t, model.StepClassificationFailed, state.CurrentStep)
	assert.NotEmpty(t, state.Error)
}

func TestPipelineRun_AllDownstreamFallbacksStillDeliver(t *testing.T) {
	// Classification succeeds; every later completion fails. The run must
	// still produce a complete plan, price and proposal.
	st := permissiveStore()
	mail := new(mockMail)
	mail.On("CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("draft-1", nil)
	notifier := new(mockNotifier)
	notifier.On("SendMessage", mock.Anything, mock.Anything).Return(nil)

	client := &stubLLM{fn: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Classify if this email") {
			return `{"is_valid": true, "confidence": 0.8, "reason": "Valid inquiry"}`, nil
		}
		return "", errors.New("provider down")
	}}
	p := New(testConfig(), st, client, mail, notifier)
	p.retry.Attempts = 1

	state, err := p.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.True(t, state.IsValidInquiry)
	assert.Equal(t, "Jane Doe", state.ClientName) // recovered from display name
	require.NotNil(t, state.ProjectPlan)
	assert.Equal(t, 80, state.ProjectPlan.TotalEstimatedHours)
	require.NotNil(t, state.CostEstimate)
	assert.NotEmpty(t, state.ProposalText)
	assert.True(t, strings.HasSuffix(state.ProposalText, "Best regards,\nOttoMail Solutions Team"))

	assert.Contains(t, state.StepHistory, model.StepExtractionFallback)
	assert.Contains(t, state.StepHistory, model.StepPlannedFallback)
	assert.Contains(t, state.StepHistory, model.StepProposalFallback)
	assert.Equal(t, model.StepNotified, state.CurrentStep)
}

func TestPipelineRun_BookkeepingFailureDoesNotBlock(t *testing.T) {
	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	st.On("CreateClient", mock.Anything, mock.Anything).Return("client-1", nil)
	st.On("CreateProposal", mock.Anything, mock.Anything).Return("prop-1", nil)

	mail := new(mockMail)
	mail.On("CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("draft-1", nil)
	notifier := new(mockNotifier)
	notifier.On("SendMessage", mock.Anything, mock.Anything).Return(nil)

	p := New(testConfig(), st, llm.NewMock(), mail, notifier)

	state, err := p.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.True(t, state.IsValidInquiry)
	assert.NotEmpty(t, state.ProposalText)
	// No run record, so no checkpoints were attempted.
	st.AssertNotCalled(t, "UpdateRunStep", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "UpdateRunResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineComplete_EmptyCompletionIsError(t *testing.T) {
	client := &stubLLM{fn: func(context.Context, string) (string, error) {
		return "   \n", nil
	}}
	p := New(testConfig(), permissiveStore(), client, nil, nil)
	p.retry.Attempts = 1

	_, err := p.complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}
