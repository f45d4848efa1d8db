package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
)

const extractPromptTmpl = `Extract structured information from this inquiry email.

Email:
From: %s
Subject: %s
Body: %s

EXTRACTION GUIDELINES:
- client_name: Look for signature, name mentions, or parse from email address
- company: Business name if mentioned, otherwise null or infer from domain
- project_type: What they want built (be SPECIFIC, e.g., "Custom CRM for Real Estate", not just "CRM")
- requirements: 3-5 specific features or requirements mentioned
- timeline: When they need it (e.g., "ASAP", "3 months", "Q1 2026")
- budget: Any budget mentioned, or "Flexible" if not stated

EXAMPLE OUTPUT:
{
    "client_name": "Debabrata G.",
    "company": "Investment Firm",
    "project_type": "AI Portfolio Management System",
    "requirements": ["Real-time tracking", "Risk analysis", "Trading alerts"],
    "timeline": "3 months",
    "budget": "$15000-$25000"
}

Return ONLY valid JSON with extracted data:`

// ExtractStage pulls a structured client-requirements record out of the
// email. The fallback never leaves the record partial: either the parsed
// AI output is merged whole, or a complete deterministic default is.
func ExtractStage(ctx context.Context, state model.PipelineState, complete CompletionFunc) model.StagePatch {
	prompt := fmt.Sprintf(extractPromptTmpl, state.EmailFrom, state.EmailSubject, state.EmailBody)

	text, err := complete(ctx, prompt)
	if err != nil {
		return extractFallback(state, err)
	}

	var req model.Requirements
	if err := decodeJSON(text, &req); err != nil {
		return extractFallback(state, err)
	}
	if req.ClientName == "" || req.ProjectType == "" {
		return extractFallback(state, fmt.Errorf("%w: missing client_name or project_type", ErrMalformedResponse))
	}

	return model.StagePatch{
		Step:         model.StepExtracted,
		Requirements: &req,
	}
}

// extractFallback derives a usable record from the raw email alone. The
// client name is recovered from the sender address; everything else gets
// fixed defaults that keep the downstream stages honest.
func extractFallback(state model.PipelineState, err error) model.StagePatch {
	name := recoverClientName(state.EmailFrom)
	if name == "" {
		name = "Valued Client"
	}

	projectType := state.EmailSubject
	if projectType == "" {
		projectType = "Custom Project"
	}

	zap.L().Warn("extract: falling back to defaults with recovered name",
		zap.String("email_id", state.EmailID),
		zap.String("client_name", name),
		zap.Error(err),
	)

	return model.StagePatch{
		Step: model.StepExtractionFallback,
		Err:  err.Error(),
		Requirements: &model.Requirements{
			ClientName:   name,
			Company:      nil,
			ProjectType:  projectType,
			Requirements: []string{"Discuss detailed requirements"},
			Timeline:     "To be determined",
			Budget:       "Flexible",
		},
	}
}

var nameNoise = regexp.MustCompile(`[0-9_.-]`)

// recoverClientName derives a human name from a sender address. A
// display-name prefix wins ("Jane Doe <jane@example.com>" -> "Jane Doe");
// otherwise the local part is de-noised and title-cased
// ("krish.gupta12@example.com" -> "Krish Gupta"). Returns "" when nothing
// name-like survives.
func recoverClientName(from string) string {
	if idx := strings.Index(from, "<"); idx >= 0 {
		return strings.TrimSpace(from[:idx])
	}

	local := from
	if idx := strings.Index(from, "@"); idx >= 0 {
		local = from[:idx]
	}

	cleaned := strings.TrimSpace(nameNoise.ReplaceAllString(local, " "))
	if cleaned == "" {
		return ""
	}

	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
