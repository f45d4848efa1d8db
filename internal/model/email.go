package model

import "time"

// InboundEmail is a business-inquiry email handed to the pipeline.
// The message ID doubles as the correlation key for the run: every
// persisted record produced while processing this email links back to it.
type InboundEmail struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id,omitempty"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Date     time.Time `json:"date,omitempty"`
}

// RunStatus represents the coarse state of a pipeline run as stored.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusRejected RunStatus = "rejected"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single pipeline run for an inbound email.
type Run struct {
	ID          string         `json:"id"`
	EmailID     string         `json:"email_id"`
	Email       InboundEmail   `json:"email"`
	Status      RunStatus      `json:"status"`
	CurrentStep Step           `json:"current_step"`
	Result      *PipelineState `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ClientRecord is the persisted client row created after a proposal is drafted.
type ClientRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ProjectType   string    `json:"project_type"`
	Requirements  []string  `json:"requirements"`
	OriginalEmail string    `json:"original_email"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProposalStatus tracks the human-review lifecycle of a stored proposal.
type ProposalStatus string

const (
	ProposalStatusPendingApproval ProposalStatus = "pending_approval"
	ProposalStatusApproved        ProposalStatus = "approved"
)

// ProposalRecord is the persisted proposal row. Proposals are never sent
// automatically; they wait in pending_approval until a human approves.
type ProposalRecord struct {
	ID           string         `json:"id"`
	ClientID     string         `json:"client_id"`
	Plan         *ProjectPlan   `json:"plan,omitempty"`
	ProposalText string         `json:"proposal_text"`
	CostMin      int            `json:"cost_min"`
	CostMax      int            `json:"cost_max"`
	Status       ProposalStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}
