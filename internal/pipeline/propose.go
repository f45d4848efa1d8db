package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
)

// signOff is the fixed identity proposals are signed with. Prompts forbid
// placeholder tokens so the draft is sendable as-is after human review.
const signOff = "OttoMail Solutions Team"

const proposePromptTmpl = `Write a professional, personalized proposal email body (NO email headers, NO subject line).

CLIENT DETAILS:
Name: %s
Email: %s
Company: %s
Project: %s

PROJECT PLAN:
%s

BUSINESS TERMS:
Total Hours: %d
Complexity: %s
Investment: $%s - $%s
Timeline: %s

CRITICAL REQUIREMENTS:
- Address the client by their ACTUAL name: %s
- Sign with "%s" (NO placeholders like [Your Name])
- Use proper paragraph breaks (double newlines between sections)
- DO NOT use placeholders like [Company Name] or [Your Name] - use actual values
- Be specific about the project type: %s

PROPOSAL STRUCTURE:
1. Greeting: Address the client personally
2. Understanding: Show you understand their needs
3. Approach: Your methodology and why it works
4. Project Breakdown: Summarize the phases with clear formatting
5. Investment: Cost range and what's included
6. Business Value: Why this is worth the investment
7. Next Steps: Clear call-to-action (schedule call, etc.)
8. Sign-off: "Best regards,\n%s"

TONE: Professional, confident, business-focused (not salesy)
LENGTH: 400-600 words
FORMATTING: Use double line breaks between sections for readability

Return ONLY the email body text (no JSON, no markdown formatting, just plain text with line breaks):`

// ProposeStage writes the proposal email body. On any completion failure
// it renders a fixed template from the extracted values, so the text is
// non-empty by construction whenever this stage runs.
func ProposeStage(ctx context.Context, state model.PipelineState, complete CompletionFunc) model.StagePatch {
	plan := state.ProjectPlan
	estimate := state.CostEstimate
	phasesText := formatPhases(plan.Phases)

	company := "their organization"
	if state.Company != nil {
		company = *state.Company
	}
	timeline := state.Timeline
	if timeline == "" {
		timeline = "8-12 weeks"
	}

	prompt := fmt.Sprintf(proposePromptTmpl,
		state.ClientName,
		state.EmailFrom,
		company,
		state.ProjectType,
		phasesText,
		plan.TotalEstimatedHours,
		plan.Complexity,
		formatUSD(estimate.Min),
		formatUSD(estimate.Max),
		timeline,
		state.ClientName,
		signOff,
		state.ProjectType,
		signOff,
	)

	text, err := complete(ctx, prompt)
	if err != nil {
		return proposeFallback(state, phasesText, err)
	}

	return model.StagePatch{
		Step:         model.StepProposalGenerated,
		ProposalText: &text,
	}
}

func proposeFallback(state model.PipelineState, phasesText string, err error) model.StagePatch {
	plan := state.ProjectPlan
	estimate := state.CostEstimate

	firstRequirement := "custom functionality"
	if len(state.Requirements) > 0 {
		firstRequirement = state.Requirements[0]
	}
	timeline := state.Timeline
	if timeline == "" {
		timeline = "8-12 weeks"
	}

	zap.L().Warn("propose: falling back to template proposal",
		zap.String("email_id", state.EmailID),
		zap.Error(err),
	)

	text := fmt.Sprintf(`Dear %s,

Thank you for reaching out regarding your %s project. We're excited about this opportunity.

**Understanding Your Needs**
Based on your inquiry, we understand you need a sophisticated solution with specific requirements including %s. We have experience delivering projects of this complexity and scope.

**Our Approach**
We follow a structured phased development methodology:

%s

This phased approach ensures quality at each stage and allows for regular feedback and adjustments.

**Project Investment**
Based on our analysis, the estimated investment for your project is:
- Total Development Hours: %d hours
- Complexity Level: %s
- Cost Range: $%s - $%s
- Timeline: %s

**Why This Investment**
This budget covers comprehensive development, rigorous testing, and deployment support. We focus on delivering long-term value and ensuring your system is maintainable and scalable.

**Next Steps**
We'd like to schedule a 30-minute discovery call to:
1. Confirm specific requirements
2. Discuss timeline and priorities
3. Address any questions
4. Provide a detailed project plan

Please let me know your availability for this week or next.

Best regards,
%s`,
		state.ClientName,
		state.ProjectType,
		firstRequirement,
		phasesText,
		plan.TotalEstimatedHours,
		strings.ToUpper(string(plan.Complexity)),
		formatUSD(estimate.Min),
		formatUSD(estimate.Max),
		timeline,
		signOff,
	)

	return model.StagePatch{
		Step:         model.StepProposalFallback,
		Err:          err.Error(),
		ProposalText: &text,
	}
}

// formatPhases renders plan phases as bullet lines for prompts and the
// fallback template.
func formatPhases(phases []model.PlanPhase) string {
	lines := make([]string, 0, len(phases))
	for _, p := range phases {
		lines = append(lines, fmt.Sprintf("• %s: %s (%d hours)", p.Name, p.Duration, p.Hours))
	}
	return strings.Join(lines, "\n")
}

// formatUSD renders an amount with thousands separators ("14400" -> "14,400").
func formatUSD(amount int) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
