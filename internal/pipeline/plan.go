package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ottomail/proposal-cli/internal/model"
)

const planPromptTmpl = `Create a realistic project plan for this inquiry.

Project: %s
Client: %s
Company: %s
Requirements: %s
Timeline: %s

PLANNING GUIDELINES:
- Generate 5 phases: Discovery, Core Development, Frontend/UI, Testing, Deployment
- Assign realistic duration and hours per phase
- Each phase has 4-5 specific tasks
- Complexity levels: simple (40-80 hrs), medium (80-120 hrs), complex (120-200 hrs)
- For finance/portfolio projects: assume COMPLEX (160 hrs)
- For generic/simple projects: assume MEDIUM (80 hrs)

EXAMPLE COMPLEX PROJECT (160 hours):
{
    "complexity": "complex",
    "total_estimated_hours": 160,
    "phases": [
        {"name": "Phase 1: Discovery & Requirements", "duration": "1.5 weeks", "hours": 20, "tasks": ["Detailed requirements gathering", "Technical design", "Architecture review", "Security planning"]},
        {"name": "Phase 2: Core Backend Development", "duration": "3 weeks", "hours": 60, "tasks": ["Database design", "API endpoints", "Authentication", "Integration services"]},
        {"name": "Phase 3: Frontend & User Interface", "duration": "2 weeks", "hours": 40, "tasks": ["UI/UX design", "React components", "State management", "Responsive design"]},
        {"name": "Phase 4: Testing & Quality Assurance", "duration": "1.5 weeks", "hours": 25, "tasks": ["Unit tests", "Integration tests", "Performance testing", "Security audit"]},
        {"name": "Phase 5: Deployment & Handoff", "duration": "1 week", "hours": 15, "tasks": ["Production setup", "Documentation", "Staff training", "Support plan"]}
    ]
}

Return ONLY valid JSON with project plan:`

// PlanStage asks for a phased project breakdown. The complexity policy in
// the prompt is guidance only; parsed AI output is stored verbatim even
// when it diverges. The fallback synthesizes a plan from the project type.
func PlanStage(ctx context.Context, state model.PipelineState, complete CompletionFunc) model.StagePatch {
	company := "Unknown"
	if state.Company != nil {
		company = *state.Company
	}
	timeline := state.Timeline
	if timeline == "" {
		timeline = "Not specified"
	}

	prompt := fmt.Sprintf(planPromptTmpl,
		state.ProjectType,
		state.ClientName,
		company,
		strings.Join(state.Requirements, ", "),
		timeline,
	)

	text, err := complete(ctx, prompt)
	if err != nil {
		return planFallback(state, err)
	}

	var plan model.ProjectPlan
	if err := decodeJSON(text, &plan); err != nil {
		return planFallback(state, err)
	}
	if plan.Complexity == "" || plan.TotalEstimatedHours <= 0 || len(plan.Phases) == 0 {
		return planFallback(state, fmt.Errorf("%w: incomplete project plan", ErrMalformedResponse))
	}

	return model.StagePatch{
		Step: model.StepPlanned,
		Plan: &plan,
	}
}

// planFallback classifies complexity by substring match on the project
// type and synthesizes four phases. Hour allocations use integer division
// of the total; the remainder of non-divisible totals is dropped.
func planFallback(state model.PipelineState, err error) model.StagePatch {
	lower := strings.ToLower(state.ProjectType)
	isComplex := strings.Contains(lower, "portfolio") || strings.Contains(lower, "finance")

	hours := 80
	complexity := model.ComplexityMedium
	if isComplex {
		hours = 160
		complexity = model.ComplexityComplex
	}

	fifth := hours / 5

	zap.L().Warn("plan: falling back to synthesized plan",
		zap.String("email_id", state.EmailID),
		zap.String("complexity", string(complexity)),
		zap.Int("hours", hours),
		zap.Error(err),
	)

	return model.StagePatch{
		Step: model.StepPlannedFallback,
		Err:  err.Error(),
		Plan: &model.ProjectPlan{
			Complexity:          complexity,
			TotalEstimatedHours: hours,
			Phases: []model.PlanPhase{
				{Name: "Phase 1: Discovery", Duration: "1-2 weeks", Hours: fifth, Tasks: []string{"Requirements", "Design", "Planning"}},
				{Name: "Phase 2: Development", Duration: "2-3 weeks", Hours: fifth * 2, Tasks: []string{"Backend", "Frontend", "Integration"}},
				{Name: "Phase 3: Testing", Duration: "1 week", Hours: fifth, Tasks: []string{"QA", "Bug fixes", "Optimization"}},
				{Name: "Phase 4: Deployment", Duration: "1 week", Hours: fifth, Tasks: []string{"Staging", "Launch", "Monitoring"}},
			},
		},
	}
}
