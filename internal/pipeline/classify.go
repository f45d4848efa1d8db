package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
)

const classifyPromptTmpl = `Classify if this email is a genuine business inquiry needing a proposal.

RULES - Email IS VALID if:
- Person asks about building/developing something (app, website, tool, system, etc.)
- Person asks for consulting, training, or professional services
- Person describes a business problem needing a solution
- Message is reasonably detailed (not one-word spam)

RULES - Email IS NOT VALID if:
- It's spam, promotional, or recruiting
- It's a job application
- It's generic "I'll pay you big money" with no details
- It's obviously auto-generated marketing

Email to analyze:
Subject: %s
From: %s
Body: %s

Return ONLY valid JSON:
{
    "is_valid": true or false,
    "confidence": 0.0 to 1.0,
    "reason": "one sentence explanation"
}`

// ClassifyStage decides whether the email warrants a proposal. It never
// fails: any completion or parse problem yields a negative classification
// with a diagnostic, so the router's branch decision stays deterministic.
func ClassifyStage(ctx context.Context, state model.PipelineState, complete CompletionFunc) model.StagePatch {
	prompt := fmt.Sprintf(classifyPromptTmpl, state.EmailSubject, state.EmailFrom, state.EmailBody)

	text, err := complete(ctx, prompt)
	if err != nil {
		return classifyFailure(state, err)
	}

	var result struct {
		IsValid    bool    `json:"is_valid"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := decodeJSON(text, &result); err != nil {
		return classifyFailure(state, err)
	}

	reason := result.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	return model.StagePatch{
		Step: model.StepClassified,
		Classification: &model.Classification{
			IsValidInquiry: result.IsValid,
			Confidence:     clamp01(result.Confidence),
			Reason:         reason,
		},
	}
}

// classifyFailure is the deterministic fallback: a valid negative
// classification. The message distinguishes an empty completion from a
// transport or parse error for observability; routing treats them the same.
func classifyFailure(state model.PipelineState, err error) model.StagePatch {
	var msg string
	if errors.Is(err, ErrEmptyCompletion) {
		msg = "Empty response from completion service"
	} else {
		msg = fmt.Sprintf("Completion error: %v", err)
	}

	zap.L().Warn("classify: falling back to negative classification",
		zap.String("email_id", state.EmailID),
		zap.Error(err),
	)

	return model.StagePatch{
		Step: model.StepClassificationFailed,
		Err:  msg,
		Classification: &model.Classification{
			IsValidInquiry: false,
			Confidence:     0.0,
			Reason:         msg,
		},
	}
}

// clamp01 coerces a confidence score into [0,1]; out-of-range provider
// values are clamped, not trusted.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncate shortens text for prompt or log inclusion.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
