package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottomail/proposal-cli/internal/model"
)

// plannedState returns a state that already passed extraction.
func plannedState(projectType string) model.PipelineState {
	state := model.NewPipelineState(testEmail())
	return state.Apply(model.StagePatch{
		Step: model.StepExtracted,
		Requirements: &model.Requirements{
			ClientName:   "Jane Doe",
			ProjectType:  projectType,
			Requirements: []string{"Online ordering"},
			Timeline:     "2 months",
			Budget:       "Flexible",
		},
	})
}

func TestPlanStage_ParsesPlan(t *testing.T) {
	state := plannedState("Bakery Website")
	complete := completeWith(`{
		"complexity": "medium",
		"total_estimated_hours": 90,
		"phases": [
			{"name": "Phase 1: Discovery", "duration": "1 week", "hours": 20, "tasks": ["Requirements"]},
			{"name": "Phase 2: Build", "duration": "3 weeks", "hours": 70, "tasks": ["Development"]}
		]
	}`)

	patch := PlanStage(context.Background(), state, complete)

	assert.Equal(t, model.StepPlanned, patch.Step)
	require.NotNil(t, patch.Plan)
	assert.Equal(t, model.ComplexityMedium, patch.Plan.Complexity)
	assert.Equal(t, 90, patch.Plan.TotalEstimatedHours)
	assert.Len(t, patch.Plan.Phases, 2)
}

func TestPlanStage_AIPlanStoredVerbatim(t *testing.T) {
	// The prompt's complexity guidance is not enforced on parsed output.
	state := plannedState("Portfolio Management System")
	complete := completeWith(`{"complexity": "simple", "total_estimated_hours": 40, "phases": [{"name": "Phase 1", "duration": "1 week", "hours": 40, "tasks": ["All of it"]}]}`)

	patch := PlanStage(context.Background(), state, complete)

	assert.Equal(t, model.StepPlanned, patch.Step)
	require.NotNil(t, patch.Plan)
	assert.Equal(t, model.ComplexitySimple, patch.Plan.Complexity)
}

func TestPlanStage_IncompletePlanFallsBack(t *testing.T) {
	state := plannedState("Bakery Website")
	// Valid JSON but zero phases.
	complete := completeWith(`{"complexity": "medium", "total_estimated_hours": 80, "phases": []}`)

	patch := PlanStage(context.Background(), state, complete)

	assert.Equal(t, model.StepPlannedFallback, patch.Step)
}

func TestPlanFallback_DefaultMedium(t *testing.T) {
	state := plannedState("Bakery Website")

	patch := PlanStage(context.Background(), state, completeErr(errors.New("timeout")))

	assert.Equal(t, model.StepPlannedFallback, patch.Step)
	require.NotNil(t, patch.Plan)
	assert.Equal(t, model.ComplexityMedium, patch.Plan.Complexity)
	assert.Equal(t, 80, patch.Plan.TotalEstimatedHours)
	require.Len(t, patch.Plan.Phases, 4)

	hours := []int{
		patch.Plan.Phases[0].Hours,
		patch.Plan.Phases[1].Hours,
		patch.Plan.Phases[2].Hours,
		patch.Plan.Phases[3].Hours,
	}
	assert.Equal(t, []int{16, 32, 16, 16}, hours)
}

func TestPlanFallback_FinanceIsComplex(t *testing.T) {
	for _, projectType := range []string{
		"AI Portfolio Management System",
		"Finance dashboard",
	} {
		state := plannedState(projectType)

		patch := PlanStage(context.Background(), state, completeErr(errors.New("timeout")))

		require.NotNil(t, patch.Plan, projectType)
		assert.Equal(t, model.ComplexityComplex, patch.Plan.Complexity, projectType)
		assert.Equal(t, 160, patch.Plan.TotalEstimatedHours, projectType)

		hours := []int{
			patch.Plan.Phases[0].Hours,
			patch.Plan.Phases[1].Hours,
			patch.Plan.Phases[2].Hours,
			patch.Plan.Phases[3].Hours,
		}
		assert.Equal(t, []int{32, 64, 32, 32}, hours, projectType)
	}
}

func TestPlanFallback_PhaseNamesAndDurations(t *testing.T) {
	state := plannedState("Bakery Website")

	patch := PlanStage(context.Background(), state, completeErr(errors.New("timeout")))

	require.Len(t, patch.Plan.Phases, 4)
	assert.Equal(t, "Phase 1: Discovery", patch.Plan.Phases[0].Name)
	assert.Equal(t, "1-2 weeks", patch.Plan.Phases[0].Duration)
	assert.Equal(t, "Phase 2: Development", patch.Plan.Phases[1].Name)
	assert.Equal(t, "2-3 weeks", patch.Plan.Phases[1].Duration)
	assert.Equal(t, "Phase 3: Testing", patch.Plan.Phases[2].Name)
	assert.Equal(t, "Phase 4: Deployment", patch.Plan.Phases[3].Name)
	for _, p := range patch.Plan.Phases {
		assert.NotEmpty(t, p.Tasks, p.Name)
	}
}
