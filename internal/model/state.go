package model

// Step is a progress marker recorded after each pipeline stage. The value
// names the stage outcome, so a fallback leaving a distinct step (for
// example StepPlannedFallback instead of StepPlanned) is visible in the
// run history without inspecting payloads.
type Step string

const (
	StepStarted              Step = "started"
	StepClassified           Step = "classified"
	StepClassificationFailed Step = "classification_failed"
	StepExtracted            Step = "extracted"
	StepExtractionFallback   Step = "extraction_fallback"
	StepPlanned              Step = "planned"
	StepPlannedFallback      Step = "planned_fallback"
	StepCosted               Step = "costed"
	StepProposalGenerated    Step = "proposal_generated"
	StepProposalFallback     Step = "proposal_fallback"
	StepStored               Step = "stored"
	StepDraftCreated         Step = "draft_created"
	StepNotified             Step = "notified"
)

// IsFallback reports whether the step marks a stage that recovered via its
// deterministic fallback instead of the AI path.
func (s Step) IsFallback() bool {
	switch s {
	case StepClassificationFailed, StepExtractionFallback, StepPlannedFallback, StepProposalFallback:
		return true
	}
	return false
}

// Classification is the outcome of the inquiry-classification stage.
type Classification struct {
	IsValidInquiry bool    `json:"is_valid_inquiry"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// Requirements holds the structured client-requirements record produced by
// the extraction stage. The struct is merged into state as a whole, never
// field by field, so downstream stages see either a complete AI extraction
// or a complete fallback.
type Requirements struct {
	ClientName   string   `json:"client_name"`
	Company      *string  `json:"company"`
	ProjectType  string   `json:"project_type"`
	Requirements []string `json:"requirements"`
	Timeline     string   `json:"timeline"`
	Budget       string   `json:"budget"`
}

// Complexity is a project complexity tier.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// PlanPhase is one phase of a project plan.
type PlanPhase struct {
	Name     string   `json:"name"`
	Duration string   `json:"duration"`
	Hours    int      `json:"hours"`
	Tasks    []string `json:"tasks"`
}

// ProjectPlan is the phase breakdown produced by the planning stage.
type ProjectPlan struct {
	Complexity          Complexity  `json:"complexity"`
	TotalEstimatedHours int         `json:"total_estimated_hours"`
	Phases              []PlanPhase `json:"phases"`
}

// CostEstimate is the price range computed from a project plan.
type CostEstimate struct {
	Min        int    `json:"min"`
	Max        int    `json:"max"`
	Hours      int    `json:"hours"`
	Complexity string `json:"complexity"`
}

// PipelineState is the record threaded through every pipeline stage. The
// router owns the state for the duration of a run; stages receive a copy
// and hand back a StagePatch, so no stage can leave the state half-written.
type PipelineState struct {
	// Email identity, immutable after initialization.
	EmailID      string `json:"email_id"`
	EmailFrom    string `json:"email_from"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`

	// Classification outcome.
	IsValidInquiry       bool    `json:"is_valid_inquiry"`
	ConfidenceScore      float64 `json:"confidence_score"`
	ClassificationReason string  `json:"classification_reason"`

	// Extracted client requirements (flat merge).
	ClientName   string   `json:"client_name,omitempty"`
	Company      *string  `json:"company,omitempty"`
	ProjectType  string   `json:"project_type,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
	Budget       string   `json:"budget,omitempty"`

	// Downstream artifacts.
	ProjectPlan  *ProjectPlan  `json:"project_plan,omitempty"`
	CostEstimate *CostEstimate `json:"cost_estimate,omitempty"`
	ProposalText string        `json:"proposal_text,omitempty"`

	// Collaborator record IDs.
	ClientID   string `json:"client_id,omitempty"`
	ProposalID string `json:"proposal_id,omitempty"`
	DraftID    string `json:"draft_id,omitempty"`

	// Routing flags and progress.
	NeedsHumanReview bool   `json:"needs_human_review"`
	CurrentStep      Step   `json:"current_step"`
	StepHistory      []Step `json:"step_history"`
	Error            string `json:"error,omitempty"`
}

// NewPipelineState initializes state for one inbound email. All decision
// flags start at their negative defaults; classification must earn them.
func NewPipelineState(email InboundEmail) PipelineState {
	return PipelineState{
		EmailID:      email.ID,
		EmailFrom:    email.From,
		EmailSubject: email.Subject,
		EmailBody:    email.Body,
		CurrentStep:  StepStarted,
		StepHistory:  []Step{StepStarted},
	}
}

// StagePatch is the typed result a stage hands back to the router. Field
// groups are whole-struct pointers: a nil group leaves the state untouched,
// a non-nil group replaces it entirely.
type StagePatch struct {
	Step Step
	// Err carries the fallback diagnostic when the stage's AI path failed.
	// It is informational only and never blocks the run.
	Err string

	Classification   *Classification
	Requirements     *Requirements
	Plan             *ProjectPlan
	Cost             *CostEstimate
	ProposalText     *string
	ClientID         *string
	ProposalID       *string
	DraftID          *string
	NeedsHumanReview *bool
}

// Apply merges a patch into the state and returns the updated copy. The
// step is appended to the history unconditionally; payload groups are only
// merged when present.
func (s PipelineState) Apply(p StagePatch) PipelineState {
	if p.Step != "" {
		s.CurrentStep = p.Step
		s.StepHistory = append(s.StepHistory, p.Step)
	}
	if p.Err != "" {
		s.Error = p.Err
	}
	if p.Classification != nil {
		s.IsValidInquiry = p.Classification.IsValidInquiry
		s.ConfidenceScore = p.Classification.Confidence
		s.ClassificationReason = p.Classification.Reason
	}
	if p.Requirements != nil {
		s.ClientName = p.Requirements.ClientName
		s.Company = p.Requirements.Company
		s.ProjectType = p.Requirements.ProjectType
		s.Requirements = p.Requirements.Requirements
		s.Timeline = p.Requirements.Timeline
		s.Budget = p.Requirements.Budget
	}
	if p.Plan != nil {
		s.ProjectPlan = p.Plan
	}
	if p.Cost != nil {
		s.CostEstimate = p.Cost
	}
	if p.ProposalText != nil {
		s.ProposalText = *p.ProposalText
	}
	if p.ClientID != nil {
		s.ClientID = *p.ClientID
	}
	if p.ProposalID != nil {
		s.ProposalID = *p.ProposalID
	}
	if p.DraftID != nil {
		s.DraftID = *p.DraftID
	}
	if p.NeedsHumanReview != nil {
		s.NeedsHumanReview = *p.NeedsHumanReview
	}
	return s
}
